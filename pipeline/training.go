// Package pipeline runs training sessions end to end and records their outcome.
package pipeline

import (
	"errors"
	"sync"
	"time"

	"carprice/dataset"
	"carprice/db"
	"carprice/ml"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusy is returned by TryRun while another run is in progress.
var ErrBusy = errors.New("a training run is already in progress")

// RunRecorder persists the training history.
type RunRecorder interface {
	SaveTrainingRun(run db.TrainingRun) error
}

// Run is a finished training session.
type Run struct {
	ID     string     `json:"run_id"`
	Result *ml.Result `json:"result"`
}

// ProgressEvent is published for every progress callback of a run.
type ProgressEvent struct {
	RunID        string          `json:"run_id"`
	Iteration    int             `json:"iteration"`
	Coefficients ml.Coefficients `json:"coefficients"`
}

type Runner struct {
	store    ml.ParameterStore
	source   dataset.Source
	recorder RunRecorder
	logger   *zap.Logger

	mu sync.Mutex

	observerMu sync.RWMutex
	observers  []func(ProgressEvent)
}

// NewRunner builds a runner. recorder may be nil.
func NewRunner(store ml.ParameterStore, source dataset.Source, recorder RunRecorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:    store,
		source:   source,
		recorder: recorder,
		logger:   logger,
	}
}

// Observe registers fn for the progress events of every subsequent run. It is
// safe to call while a run is in progress.
func (r *Runner) Observe(fn func(ProgressEvent)) {
	r.observerMu.Lock()
	r.observers = append(r.observers, fn)
	r.observerMu.Unlock()
}

// Run trains with config, waiting for any run in progress. progress may be nil.
func (r *Runner) Run(config ml.TrainConfig, progress ml.ProgressFunc) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run(config, progress)
}

// TryRun is Run without waiting: it fails with ErrBusy if a run is active.
func (r *Runner) TryRun(config ml.TrainConfig, progress ml.ProgressFunc) (*Run, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	return r.run(config, progress)
}

func (r *Runner) run(config ml.TrainConfig, progress ml.ProgressFunc) (*Run, error) {
	id := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", id))

	r.observerMu.RLock()
	observers := append(([]func(ProgressEvent))(nil), r.observers...)
	r.observerMu.RUnlock()

	observe := func(iteration int, c ml.Coefficients) {
		if progress != nil {
			progress(iteration, c)
		}
		event := ProgressEvent{RunID: id, Iteration: iteration, Coefficients: c}
		for _, fn := range observers {
			fn(event)
		}
	}

	trainer := ml.NewTrainer(config, r.store, ml.WithLogger(logger), ml.WithProgress(observe))
	started := time.Now()
	result, err := trainer.Train(r.source)
	logger.Info("training run finished",
		zap.Stringer("state", result.State),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("data_points", result.DataPoints),
	)

	r.record(logger, id, config, result)
	return &Run{ID: id, Result: result}, err
}

func (r *Runner) record(logger *zap.Logger, id string, config ml.TrainConfig, result *ml.Result) {
	if r.recorder == nil {
		return
	}
	run := db.TrainingRun{
		RunID:         id,
		State:         result.State.String(),
		Reason:        result.Reason,
		Iterations:    result.Iterations,
		FinalCost:     result.FinalCost(),
		LearningRate:  config.LearningRate,
		StopThreshold: config.StopThreshold,
		MaxIterations: config.Iterations,
		DataPoints:    result.DataPoints,
		TrainedAt:     time.Now(),
	}
	if result.State != ml.StateAborted {
		run.Theta0 = result.Coefficients.Theta0
		run.Theta1 = result.Coefficients.Theta1
	}
	if err := r.recorder.SaveTrainingRun(run); err != nil {
		logger.Warn("record training run failed", zap.Error(err))
	}
}
