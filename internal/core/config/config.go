// SPDX-License-Identifier: Apache-2.0

// Package config loads platform settings from a config file, environment
// variables, and defaults, in that precedence order.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the platform settings.
type Config struct {
	// ToolsDir is the root directory scanned for module definitions.
	ToolsDir string `mapstructure:"tools_dir"`

	// WorkflowsDir is where workflow files are looked up and scaffolded.
	WorkflowsDir string `mapstructure:"workflows_dir"`

	// StepTimeout bounds workflow steps that declare no timeout of their
	// own. Zero leaves them unbounded.
	StepTimeout time.Duration `mapstructure:"step_timeout"`

	// Verbose enables progress output across the platform.
	Verbose bool `mapstructure:"verbose"`
}

// Load reads configuration from an optional secv.yaml in the working
// directory, overlaid by SECV_* environment variables. A missing config file
// is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("tools_dir", "tools")
	v.SetDefault("workflows_dir", "workflows")
	v.SetDefault("step_timeout", time.Duration(0))
	v.SetDefault("verbose", false)

	v.SetConfigName("secv")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.secv")

	v.SetEnvPrefix("SECV")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}
