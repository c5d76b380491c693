// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xbv1/secv/internal/core/models"
	"github.com/0xbv1/secv/internal/core/module"
	"github.com/0xbv1/secv/internal/core/secverr"
)

var (
	executeModule string
	executeTarget string
	executeParams string
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run a single module against a target",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExecute(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	executeCmd.Flags().StringVarP(&executeModule, "module", "m", "", "module name (required)")
	executeCmd.Flags().StringVarP(&executeTarget, "target", "t", "", "target of the execution (required)")
	executeCmd.Flags().StringVarP(&executeParams, "params", "p", "", "extra parameters as a JSON object")
	executeCmd.MarkFlagRequired("module")
	executeCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(executeCmd)
}

func runExecute(ctx context.Context) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	mod, ok := reg.Get(executeModule)
	if !ok {
		return &secverr.ModuleNotFoundError{Name: executeModule}
	}

	ec := models.NewExecutionContext(executeTarget)
	if executeParams != "" {
		if err := json.Unmarshal([]byte(executeParams), &ec.Parameters); err != nil {
			return fmt.Errorf("error parsing --params: %w", err)
		}
	}
	if _, present := ec.Parameters["target"]; !present {
		ec.Parameters["target"] = executeTarget
	}

	if err := mod.ValidateDependencies(ctx); err != nil {
		return err
	}

	module.ApplyDefaults(mod.Metadata(), ec.Parameters)
	if err := mod.ValidateInputs(ec.Parameters); err != nil {
		return err
	}

	result, err := mod.Execute(ctx, ec.Clone())
	if cleanupErr := mod.Cleanup(); cleanupErr != nil {
		fmt.Printf("Warning: cleanup failed: %v\n", cleanupErr)
	}
	if err != nil {
		return &secverr.ExecutionError{Module: executeModule, Reason: err.Error()}
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("error rendering result: %w", err)
	}
	fmt.Println(string(pretty))

	if !result.Success {
		os.Exit(1)
	}
	return nil
}
