// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the secv command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xbv1/secv/internal/core/config"
	"github.com/0xbv1/secv/internal/core/registry"
	"github.com/0xbv1/secv/internal/modules/netscan"
	"github.com/0xbv1/secv/internal/version"
)

var (
	cfg      *config.Config
	verbose  bool
	toolsDir string
)

var rootCmd = &cobra.Command{
	Use:     "secv",
	Short:   "SecV module orchestration platform",
	Long:    "SecV discovers pluggable security modules and runs them standalone or chained into workflows.",
	Version: fmt.Sprintf("%s (%s)", version.Version, version.Commit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if verbose {
			loaded.Verbose = true
		}
		if toolsDir != "" {
			loaded.ToolsDir = toolsDir
		}
		cfg = loaded
		return nil
	},
	// Bare invocation opens the interactive menu.
	Run: func(cmd *cobra.Command, args []string) {
		interactiveCmd.Run(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable progress output")
	rootCmd.PersistentFlags().StringVar(&toolsDir, "tools-dir", "", "override the module discovery directory")
}

// buildRegistry creates a registry with the built-in modules registered and
// the tools directory discovered. A missing tools directory is a warning so
// built-ins remain usable in an unscaffolded checkout.
func buildRegistry() (*registry.Registry, error) {
	reg := registry.New(cfg.Verbose)

	if err := reg.Register(netscan.New(cfg.Verbose)); err != nil {
		return nil, fmt.Errorf("error registering built-in modules: %w", err)
	}

	if _, err := os.Stat(cfg.ToolsDir); err != nil {
		fmt.Printf("Warning: tools directory %s not found; only built-in modules available\n", cfg.ToolsDir)
		return reg, nil
	}

	loaded, err := reg.Discover(cfg.ToolsDir)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		fmt.Printf("Discovered %d module(s) in %s\n", loaded, cfg.ToolsDir)
	}
	return reg, nil
}
