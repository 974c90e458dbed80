package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// runConfig is the yaml configuration of a run. Flags override it.
//
// Example:
//
//	function: hyper-ellipsoid
//	dimensions: 3
//	rounds: 2000
//	v1: 4
//	rho: 0.7
//	seed: 42
//	priority: [1, 1, 2]
type runConfig struct {
	Function         string    `yaml:"function"`
	Rounds           int       `yaml:"rounds"`
	V1               float64   `yaml:"v1"`
	Rho              float64   `yaml:"rho"`
	Seed             int64     `yaml:"seed"`
	Priority         []int     `yaml:"priority"`
	InclusiveHorizon bool      `yaml:"inclusive_horizon"`
	ProgressInterval int       `yaml:"progress_interval"`
	Noise            float64   `yaml:"noise"`
	Dimensions       int       `yaml:"dimensions"`
	GParams          []float64 `yaml:"g_params"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		Function:         "sixhump",
		Rounds:           1000,
		V1:               1,
		Rho:              0.5,
		ProgressInterval: 100,
		Dimensions:       2,
		GParams:          []float64{0, 1, 4.5},
	}
}

// loadRunConfig reads path over the defaults. An empty path returns the
// defaults.
func loadRunConfig(path string) (runConfig, error) {
	config := defaultRunConfig()
	if path == "" {
		return config, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "reading config")
	}

	if err := yaml.Unmarshal(raw, &config); err != nil {
		return config, errors.Wrapf(err, "parsing config %s", path)
	}

	return config, nil
}
