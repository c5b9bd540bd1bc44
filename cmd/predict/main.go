package main

import (
	"context"
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
	"carprice/predict"
	"go.uber.org/zap"
)

type options struct {
	configPath    string
	interactive   bool
	budget        bool
	visualization bool
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "config.yaml", "config file")
	for _, name := range []string{"i", "interactive"} {
		fs.BoolVar(&o.interactive, name, false, "keep asking until q is entered")
	}
	for _, name := range []string{"b", "budget"} {
		fs.BoolVar(&o.budget, name, false, "answer with a mileage for a budget")
	}
	for _, name := range []string{"v", "visualization"} {
		fs.BoolVar(&o.visualization, name, false, "plot the data points")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *options) mode() predict.Mode {
	if o.budget {
		return predict.ModeBudget
	}
	return predict.ModeMileage
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		fmt.Printf("An error occurred: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
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

	c, err := stores.Params.Load()
	if err != nil {
		return err
	}

	if opts.visualization {
		ds, err := dataset.Load(cfg.Data.Path)
		if err != nil {
			return err
		}
		if err := chart.Regression(ds, c, false, filepath.Join(cfg.Plot.Dir, "data.png")); err != nil {
			return err
		}
	}

	console := predict.NewConsole(in, out, c)

	if opts.interactive && stores.WatchPath != "" {
		watcher, err := params.NewWatcher(stores.WatchPath, stores.Params, logger, func(c ml.Coefficients) {
			logger.Info("coefficients reloaded", zap.Float64("theta0", c.Theta0), zap.Float64("theta1", c.Theta1))
			console.SetCoefficients(c)
		})
		if err != nil {
			logger.Warn("watch parameters failed", zap.Error(err))
		} else {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go watcher.Run(ctx)
		}
	}

	return console.Run(opts.mode(), opts.interactive)
}
