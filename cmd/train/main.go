package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"carprice/chart"
	"carprice/config"
	"carprice/dataset"
	"carprice/logging"
	"carprice/ml"
	"carprice/params"
	"carprice/pipeline"
	"go.uber.org/zap"
)

type options struct {
	configPath    string
	dataPath      string
	reinitialize  bool
	theta0        float64
	theta1        float64
	iterations    int
	stopThreshold float64
	learningRate  float64
	visualization bool
	evolution     bool
	showCost      bool

	set map[string]bool
}

func parseFlags(args []string) (*options, error) {
	o := &options{set: map[string]bool{}}
	fs := flag.NewFlagSet("train", flag.ContinueOnError)

	fs.StringVar(&o.configPath, "config", "config.yaml", "config file")
	fs.StringVar(&o.dataPath, "data", "", "csv file with km,price columns")
	for _, name := range []string{"r", "reinitialize"} {
		fs.BoolVar(&o.reinitialize, name, false, "reset theta0 and theta1 and exit")
	}
	for _, name := range []string{"b", "theta0"} {
		fs.Float64Var(&o.theta0, name, 0, "starting theta0")
	}
	for _, name := range []string{"a", "theta1"} {
		fs.Float64Var(&o.theta1, name, 0, "starting theta1")
	}
	for _, name := range []string{"i", "iterations"} {
		fs.IntVar(&o.iterations, name, ml.DefaultIterations, "maximum number of iterations")
	}
	for _, name := range []string{"s", "stop"} {
		fs.Float64Var(&o.stopThreshold, name, ml.DefaultStopThreshold, "relative cost improvement below which training stops")
	}
	for _, name := range []string{"l", "learning_rate"} {
		fs.Float64Var(&o.learningRate, name, ml.DefaultLearningRate, "learning rate")
	}
	for _, name := range []string{"v", "visualization"} {
		fs.BoolVar(&o.visualization, name, false, "plot the data and the fit line")
	}
	for _, name := range []string{"e", "evolution"} {
		fs.BoolVar(&o.evolution, name, false, "plot the fit line during training")
	}
	for _, name := range []string{"c", "show_cost"} {
		fs.BoolVar(&o.showCost, name, false, "plot the cost history")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	aliases := map[string]string{"b": "theta0", "a": "theta1", "i": "iterations", "s": "stop", "l": "learning_rate"}
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		o.set[name] = true
	})
	return o, nil
}

// trainConfig starts from the configured values and applies the flags given
// on the command line.
func (o *options) trainConfig(base ml.TrainConfig) ml.TrainConfig {
	if o.set["iterations"] {
		base.Iterations = o.iterations
	}
	if o.set["stop"] {
		base.StopThreshold = o.stopThreshold
	}
	if o.set["learning_rate"] {
		base.LearningRate = o.learningRate
	}
	return base
}

func (o *options) overrides() (theta0, theta1 *float64) {
	if o.set["theta0"] {
		theta0 = &o.theta0
	}
	if o.set["theta1"] {
		theta1 = &o.theta1
	}
	return theta0, theta1
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts, os.Stdout); err != nil {
		fmt.Printf("An error occurred: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options, out io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.dataPath != "" {
		cfg.Data.Path = opts.dataPath
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	stores, err := pipeline.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	if opts.reinitialize {
		if err := stores.Params.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(out, "theta0 and theta1 were reinitialized.")
		return nil
	}

	theta0, theta1 := opts.overrides()
	if _, err := params.Override(stores.Params, theta0, theta1); err != nil {
		return err
	}

	ds, loadErr := dataset.Load(cfg.Data.Path)
	source := dataset.SourceFunc(func() (*dataset.Dataset, error) { return ds, loadErr })
	runner := pipeline.NewRunner(stores.Params, source, stores.Recorder(), logger)

	var progress ml.ProgressFunc
	if opts.evolution && ds != nil {
		dir := filepath.Join(cfg.Plot.Dir, "evolution")
		progress = chart.Evolution(ds, dir, func(err error) {
			logger.Warn("evolution frame failed", zap.Error(err))
		})
	}

	result, err := runner.Run(opts.trainConfig(cfg.Training), progress)
	if msg, ok := abortMessage(err); ok {
		fmt.Fprintln(out, msg)
		if errors.Is(err, ml.ErrNoData) || errors.Is(err, ml.ErrDiverged) {
			fmt.Fprintln(out, err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	r := result.Result
	fmt.Fprintf(out, "Training stopped after %d iterations.\n", r.Iterations)
	fmt.Fprintf(out, "theta0 = %v\n", r.Coefficients.Theta0)
	fmt.Fprintf(out, "theta1 = %v\n", r.Coefficients.Theta1)
	report := ml.Evaluate(r.Dataset, r.Coefficients)
	fmt.Fprintf(out, "cost = %.4f, rmse = %.4f, r2 = %.4f\n", report.Cost, report.RMSE, report.RSquared)

	if opts.visualization {
		if err := chart.Regression(r.Dataset, r.Coefficients, true, filepath.Join(cfg.Plot.Dir, "regression.png")); err != nil {
			return err
		}
	}
	if opts.showCost {
		if err := chart.CostHistory(r.Costs, filepath.Join(cfg.Plot.Dir, "cost.png")); err != nil {
			return err
		}
	}
	return nil
}

// abortMessage maps the reasons a run can be aborted to the user facing text.
func abortMessage(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, ml.ErrNoData):
		return "No data.", true
	case errors.Is(err, ml.ErrDegenerateData):
		return "Standard deviation of mileage or price is null. No training performed.", true
	case errors.Is(err, ml.ErrInsufficientData):
		return "Not enough data points in the csv. No training performed.", true
	case errors.Is(err, ml.ErrDiverged):
		return "Training diverged. No parameters saved.", true
	}
	return "", false
}
