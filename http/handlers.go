package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"carprice/db"
	"carprice/ml"
	"carprice/monitoring"
	"carprice/pipeline"
	"carprice/predict"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// RunLister reads the training history.
type RunLister interface {
	LoadTrainingRuns(limit int) ([]db.TrainingRun, error)
}

// Deps are the collaborators of the API. Runs, Hub and Metrics may be nil.
type Deps struct {
	Store     ml.ParameterStore
	Runner    *pipeline.Runner
	Runs      RunLister
	Hub       *monitoring.Hub
	Metrics   *monitoring.Collector
	Training  ml.TrainConfig
	CacheSize int
	Logger    *zap.Logger
}

type API struct {
	deps   Deps
	cache  *lru.Cache[cacheKey, answer]
	logger *zap.Logger
}

type answer struct {
	status int
	body   map[string]interface{}
}

func NewAPI(deps Deps) (*API, error) {
	if deps.Store == nil || deps.Runner == nil {
		return nil, errors.New("store and runner are required")
	}
	size := deps.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[cacheKey, answer](size)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{deps: deps, cache: cache, logger: logger}, nil
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/params", a.handleGetParams)
	mux.HandleFunc("DELETE /api/params", a.handleResetParams)
	mux.HandleFunc("GET /api/predict/{km}", a.handlePredict)
	mux.HandleFunc("GET /api/budget/{price}", a.handleBudget)
	mux.HandleFunc("POST /api/train", a.handleTrain)
	mux.HandleFunc("GET /api/training/runs", a.handleTrainingRuns)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	if a.deps.Hub != nil {
		mux.Handle("GET /api/ws/training", a.deps.Hub)
	}
}

// ParametersChanged drops cached answers and notifies websocket clients.
func (a *API) ParametersChanged(c ml.Coefficients) {
	a.cache.Purge()
	if a.deps.Hub != nil {
		a.deps.Hub.Publish(monitoring.ParametersChanged, c)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleGetParams(w http.ResponseWriter, r *http.Request) {
	c, err := a.deps.Store.Load()
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (a *API) handleResetParams(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Store.Reset(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err)
		return
	}
	c, err := a.deps.Store.Load()
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err)
		return
	}
	a.ParametersChanged(c)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "theta0 and theta1 were reinitialized.",
		"coefficients": c,
	})
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	km, c, ok := a.questionInput(w, r.PathValue("km"))
	if !ok {
		return
	}
	status := a.cached(w, cacheKey{kind: "mileage", input: km, coefficients: c}, func() answer {
		price := ml.Predict(float64(km), c)
		estimated, err := ml.Truncate(price)
		if err != nil {
			return errorAnswer(http.StatusUnprocessableEntity, err)
		}
		return answer{status: http.StatusOK, body: map[string]interface{}{
			"km":              km,
			"price":           price,
			"estimated_price": estimated,
		}}
	})
	if status == http.StatusOK {
		a.count(monitoring.MetricPredictions, "mileage")
	}
}

func (a *API) handleBudget(w http.ResponseWriter, r *http.Request) {
	budget, c, ok := a.questionInput(w, r.PathValue("price"))
	if !ok {
		return
	}
	status := a.cached(w, cacheKey{kind: "budget", input: budget, coefficients: c}, func() answer {
		km, err := ml.ExpectedInputForTargetOutput(float64(budget), c)
		switch {
		case errors.Is(err, ml.ErrUndefinedInverse):
			return errorAnswer(http.StatusUnprocessableEntity, fmt.Errorf("%w, try training again", err))
		case err != nil:
			return errorAnswer(http.StatusUnprocessableEntity, err)
		}
		return answer{status: http.StatusOK, body: map[string]interface{}{
			"budget": budget,
			"km":     km,
		}}
	})
	if status == http.StatusOK {
		a.count(monitoring.MetricPredictions, "budget")
	}
}

// questionInput parses raw and loads the current coefficients, answering the
// request itself when either fails.
func (a *API) questionInput(w http.ResponseWriter, raw string) (int64, ml.Coefficients, bool) {
	value, err := predict.ParseInput(raw)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err)
		return 0, ml.Coefficients{}, false
	}
	c, err := a.deps.Store.Load()
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err)
		return 0, ml.Coefficients{}, false
	}
	return value, c, true
}

// cacheKey includes the coefficients an answer was computed with, so a
// store change behind the API never serves an old answer.
type cacheKey struct {
	kind         string
	input        int64
	coefficients ml.Coefficients
}

// cached serves key from the cache, computing and storing successful answers.
// It returns the status written.
func (a *API) cached(w http.ResponseWriter, key cacheKey, compute func() answer) int {
	result, ok := a.cache.Get(key)
	if !ok {
		result = compute()
		if result.status == http.StatusOK {
			a.cache.Add(key, result)
		}
	}
	respondJSON(w, result.status, result.body)
	return result.status
}

type trainRequest struct {
	Iterations    *int     `json:"iterations"`
	LearningRate  *float64 `json:"learning_rate"`
	StopThreshold *float64 `json:"stop_threshold"`
}

func (a *API) handleTrain(w http.ResponseWriter, r *http.Request) {
	config := a.deps.Training
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Iterations != nil {
		config.Iterations = *req.Iterations
	}
	if req.LearningRate != nil {
		config.LearningRate = *req.LearningRate
	}
	if req.StopThreshold != nil {
		config.StopThreshold = *req.StopThreshold
	}
	if err := config.Validate(); err != nil {
		a.respondError(w, http.StatusBadRequest, err)
		return
	}

	run, err := a.deps.Runner.TryRun(config, nil)
	if errors.Is(err, pipeline.ErrBusy) {
		a.respondError(w, http.StatusConflict, err)
		return
	}

	body := map[string]interface{}{}
	if run != nil {
		result := run.Result
		body["run_id"] = run.ID
		body["state"] = result.State
		body["iterations"] = result.Iterations
		body["data_points"] = result.DataPoints
		if result.Reason != "" {
			body["reason"] = result.Reason
		}
		if result.State != ml.StateAborted {
			body["coefficients"] = result.Coefficients
			body["report"] = ml.Evaluate(result.Dataset, result.Coefficients)
		}
		if a.deps.Hub != nil {
			a.deps.Hub.Publish(monitoring.TrainingFinished, body)
		}
		a.recordRun(result)
	}

	switch {
	case err == nil:
		a.ParametersChanged(run.Result.Coefficients)
		respondJSON(w, http.StatusOK, body)
	case run != nil && run.Result.State == ml.StateAborted:
		body["error"] = err.Error()
		respondJSON(w, http.StatusUnprocessableEntity, body)
	default:
		a.respondError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) handleTrainingRuns(w http.ResponseWriter, r *http.Request) {
	if a.deps.Runs == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "training history disabled"})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = l
		}
	}
	runs, err := a.deps.Runs.LoadTrainingRuns(limit)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if a.deps.Metrics == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"metrics": []monitoring.Summary{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"metrics": a.deps.Metrics.Summaries()})
}

func (a *API) count(name, kind string) {
	if a.deps.Metrics != nil {
		a.deps.Metrics.Inc(name, map[string]string{"kind": kind})
	}
}

func (a *API) recordRun(result *ml.Result) {
	if a.deps.Metrics == nil {
		return
	}
	labels := map[string]string{"state": result.State.String()}
	a.deps.Metrics.Inc(monitoring.MetricTrainingRuns, labels)
	if result.State != ml.StateAborted {
		a.deps.Metrics.Gauge(monitoring.MetricTrainingCost, result.FinalCost(), labels)
		a.deps.Metrics.Gauge(monitoring.MetricTrainingIteration, float64(result.Iterations), labels)
	}
}

func errorAnswer(status int, err error) answer {
	return answer{status: status, body: map[string]interface{}{"error": err.Error()}}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", zap.Error(err))
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// respondJSON answers 500 when data cannot be encoded.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
