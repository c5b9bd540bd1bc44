package ml

import (
	"fmt"
	"math"

	"carprice/dataset"
	"go.uber.org/zap"
)

// State is the phase of a training run.
type State int

const (
	StateInitializing State = iota
	StateNormalizing
	StateIterating
	StateConverged
	StateIterationLimitReached
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateNormalizing:
		return "normalizing"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateIterationLimitReached:
		return "iteration_limit_reached"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	DefaultIterations    = 10000
	DefaultLearningRate  = 0.001
	DefaultStopThreshold = 0.00001
)

// TrainConfig holds the gradient descent hyper-parameters.
type TrainConfig struct {
	Iterations    int     `json:"iterations" yaml:"iterations"`
	LearningRate  float64 `json:"learning_rate" yaml:"learning_rate"`
	StopThreshold float64 `json:"stop_threshold" yaml:"stop_threshold"`
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Iterations:    DefaultIterations,
		LearningRate:  DefaultLearningRate,
		StopThreshold: DefaultStopThreshold,
	}
}

func (c TrainConfig) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfig, c.LearningRate)
	}
	return nil
}

// ProgressInterval is how often the progress callback fires: every ceil(iterations/5) steps.
func (c TrainConfig) ProgressInterval() int {
	interval := (c.Iterations + 4) / 5
	if interval < 1 {
		interval = 1
	}
	return interval
}

// ProgressFunc observes the raw coefficients during training.
type ProgressFunc func(iteration int, c Coefficients)

// Result describes a finished training run. Coefficients are only meaningful
// when State is not StateAborted.
type Result struct {
	State        State              `json:"state"`
	Reason       string             `json:"reason,omitempty"`
	Coefficients Coefficients       `json:"coefficients"`
	Iterations   int                `json:"iterations"`
	Costs        []float64          `json:"costs,omitempty"`
	Stats        NormalizationStats `json:"stats"`
	DataPoints   int                `json:"data_points"`
	Dataset      *dataset.Dataset   `json:"-"`
}

// FinalCost returns the last recorded cost, or 0 if none.
func (r *Result) FinalCost() float64 {
	if r == nil || len(r.Costs) == 0 {
		return 0
	}
	return r.Costs[len(r.Costs)-1]
}

type TrainerOption func(*Trainer)

func WithLogger(logger *zap.Logger) TrainerOption {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithProgress(fn ProgressFunc) TrainerOption {
	return func(t *Trainer) {
		t.progress = fn
	}
}

// Trainer fits the coefficients by batch gradient descent in normalized space.
type Trainer struct {
	config   TrainConfig
	store    ParameterStore
	logger   *zap.Logger
	progress ProgressFunc
	cost     func(*dataset.Dataset, Coefficients) float64
}

func NewTrainer(config TrainConfig, store ParameterStore, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		config: config,
		store:  store,
		logger: zap.NewNop(),
		cost:   Cost,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Trainer) Config() TrainConfig {
	return t.config
}

// Train runs a full training session. The store is read once before iterating
// and written once after a successful run; an aborted run never writes it.
// The returned error is non-nil exactly when the run was aborted or the
// final save failed.
func (t *Trainer) Train(source dataset.Source) (*Result, error) {
	result := &Result{State: StateInitializing}

	if err := t.config.Validate(); err != nil {
		return t.abort(result, err)
	}

	ds, err := source.Load()
	if err != nil {
		return t.abort(result, fmt.Errorf("%w: %w", ErrNoData, err))
	}
	if ds == nil {
		return t.abort(result, ErrNoData)
	}
	result.Dataset = ds
	result.DataPoints = ds.Len()

	result.State = StateNormalizing
	if ds.Len() < 2 {
		return t.abort(result, ErrInsufficientData)
	}
	stats, err := ComputeStats(ds)
	if err != nil {
		return t.abort(result, err)
	}
	result.Stats = stats
	if err := stats.Validate(); err != nil {
		return t.abort(result, err)
	}
	norm, err := normalizeDataset(ds, stats)
	if err != nil {
		return t.abort(result, err)
	}

	initial, err := t.store.Load()
	if err != nil {
		return t.abort(result, fmt.Errorf("load parameters: %w", err))
	}

	result.State = StateIterating
	if err := t.iterate(result, ds, norm, ToNormalizedCoefficients(initial, stats)); err != nil {
		return t.abort(result, err)
	}

	t.logger.Info("training stopped",
		zap.Stringer("state", result.State),
		zap.Int("iterations", result.Iterations),
		zap.Float64("cost", result.FinalCost()),
		zap.Float64("theta0", result.Coefficients.Theta0),
		zap.Float64("theta1", result.Coefficients.Theta1),
	)

	if err := t.store.Save(result.Coefficients); err != nil {
		return result, fmt.Errorf("save parameters: %w", err)
	}
	return result, nil
}

// iterate runs gradient descent and fails with ErrDiverged as soon as a cost
// or a coefficient stops being finite. Costs then holds only the finite costs.
func (t *Trainer) iterate(result *Result, ds *dataset.Dataset, norm *normalized, current Coefficients) error {
	interval := t.config.ProgressInterval()
	costs := make([]float64, 0, min(t.config.Iterations, 1024))

	result.State = StateIterationLimitReached
	for i := 0; i < t.config.Iterations; i++ {
		current = gradientDescentStep(current, norm, t.config.LearningRate)
		raw := ToRawCoefficients(current, result.Stats)
		cost := t.cost(ds, raw)
		if !finite(cost) || !raw.finite() {
			result.Costs = costs
			result.Iterations = i + 1
			return fmt.Errorf("%w: cost %g at iteration %d", ErrDiverged, cost, i)
		}
		costs = append(costs, cost)

		if shouldStop(costs, t.config.StopThreshold) {
			result.State = StateConverged
			break
		}
		if t.progress != nil && i%interval == 0 {
			t.progress(i, raw)
		}
	}

	result.Costs = costs
	result.Iterations = len(costs)
	result.Coefficients = ToRawCoefficients(current, result.Stats)
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (c Coefficients) finite() bool {
	return finite(c.Theta0) && finite(c.Theta1)
}

// gradientDescentStep applies one simultaneous batch update.
func gradientDescentStep(c Coefficients, norm *normalized, learningRate float64) Coefficients {
	sum0, sum1 := 0.0, 0.0
	for i, km := range norm.km {
		diff := Predict(km, c) - norm.price[i]
		sum0 += diff
		sum1 += diff * km
	}
	n := float64(len(norm.km))
	return Coefficients{
		Theta0: c.Theta0 - learningRate*sum0/n,
		Theta1: c.Theta1 - learningRate*sum1/n,
	}
}

// shouldStop applies the early stopping rule once at least three costs are
// recorded. A rising cost gives a negative improvement and also stops.
func shouldStop(costs []float64, threshold float64) bool {
	if len(costs) < 3 {
		return false
	}
	prev, last := costs[len(costs)-2], costs[len(costs)-1]
	if prev == 0 {
		return true
	}
	return (prev-last)/prev < threshold
}

func (t *Trainer) abort(result *Result, reason error) (*Result, error) {
	result.State = StateAborted
	result.Reason = reason.Error()
	t.logger.Warn("training aborted", zap.Error(reason))
	return result, reason
}
