package monitoring

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric names recorded by the server.
const (
	MetricPredictions       = "predictions_total"
	MetricTrainingRuns      = "training_runs_total"
	MetricTrainingCost      = "training_final_cost"
	MetricTrainingIteration = "training_iterations"
)

const maxHistory = 1000

type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type Summary struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Latest  float64   `json:"latest"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Average float64   `json:"average"`
	Updated time.Time `json:"updated"`
}

// Collector keeps a bounded history per metric name.
type Collector struct {
	mu      sync.RWMutex
	metrics map[string][]Metric
	now     func() time.Time
}

func NewCollector() *Collector {
	return &Collector{metrics: make(map[string][]Metric), now: time.Now}
}

func (c *Collector) Gauge(name string, value float64, labels map[string]string) {
	c.record(Metric{Name: name, Type: MetricTypeGauge, Value: value, Labels: labels})
}

// Inc adds one to the counter name and records the new total.
func (c *Collector) Inc(name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 1.0
	if history := c.metrics[name]; len(history) > 0 {
		total = history[len(history)-1].Value + 1
	}
	c.appendLocked(Metric{Name: name, Type: MetricTypeCounter, Value: total, Labels: labels})
}

func (c *Collector) record(m Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(m)
}

func (c *Collector) appendLocked(m Metric) {
	m.Timestamp = c.now()
	history := append(c.metrics[m.Name], m)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	c.metrics[m.Name] = history
}

func (c *Collector) Get(name string) ([]Metric, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	history, ok := c.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %s not found", name)
	}
	return append([]Metric(nil), history...), nil
}

func (c *Collector) Summary(name string) (Summary, error) {
	history, err := c.Get(name)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Name: name, Count: len(history), Min: history[0].Value, Max: history[0].Value}
	sum := 0.0
	for _, m := range history {
		sum += m.Value
		s.Min = min(s.Min, m.Value)
		s.Max = max(s.Max, m.Value)
	}
	last := history[len(history)-1]
	s.Latest = last.Value
	s.Updated = last.Timestamp
	s.Average = sum / float64(len(history))
	return s, nil
}

// Summaries returns one summary per recorded metric, sorted by name.
func (c *Collector) Summaries() []Summary {
	c.mu.RLock()
	names := make([]string, 0, len(c.metrics))
	for name := range c.metrics {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		if s, err := c.Summary(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}
