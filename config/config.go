// Package config loads the YAML configuration shared by the binaries.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"carprice/ml"
	"gopkg.in/yaml.v2"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Data struct {
		Path string `yaml:"path"`
	} `yaml:"data"`
	Params   Params         `yaml:"params"`
	Training ml.TrainConfig `yaml:"training"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port      int `yaml:"port"`
		CacheSize int `yaml:"cache_size"`
	} `yaml:"http"`
	Log  Log `yaml:"log"`
	Plot struct {
		Dir string `yaml:"dir"`
	} `yaml:"plot"`
}

type Params struct {
	Backend       string  `yaml:"backend"`
	Path          string  `yaml:"path"`
	DefaultTheta0 float64 `yaml:"default_theta0"`
	DefaultTheta1 float64 `yaml:"default_theta1"`
}

func (p Params) Defaults() ml.Coefficients {
	return ml.Coefficients{Theta0: p.DefaultTheta0, Theta1: p.DefaultTheta1}
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"`
}

func Default() *Config {
	var c Config
	c.Data.Path = "data.csv"
	c.Params = Params{Backend: BackendFile, Path: "params.txt"}
	c.Training = ml.DefaultTrainConfig()
	c.Database.Path = "training.db"
	c.Http.Port = 8080
	c.Http.CacheSize = 256
	c.Log = Log{
		Level:      "info",
		File:       "logs/carprice.log",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
	c.Plot.Dir = "plots"
	return &c
}

// Load decodes path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Params.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown params backend %q", c.Params.Backend)
	}
	if c.Params.Backend == BackendSQLite && c.Database.Path == "" {
		return errors.New("sqlite params backend needs database.path")
	}
	if c.Params.Backend == BackendFile && c.Params.Path == "" {
		return errors.New("params.path is required")
	}
	return c.Training.Validate()
}
