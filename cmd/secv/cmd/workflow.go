// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/0xbv1/secv/internal/engine"
)

var (
	workflowFile   string
	workflowTarget string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run a workflow file against a target",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWorkflow(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	workflowCmd.Flags().StringVarP(&workflowFile, "file", "f", "", "workflow file, YAML or JSON (required)")
	workflowCmd.Flags().StringVarP(&workflowTarget, "target", "t", "", "target of the run (required)")
	workflowCmd.MarkFlagRequired("file")
	workflowCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(workflowCmd)
}

func runWorkflow(cmd *cobra.Command) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	eng := engine.New(reg, engine.Options{
		Verbose:            cfg.Verbose,
		DefaultStepTimeout: cfg.StepTimeout,
	})

	wf, err := eng.LoadWorkflow(workflowFile)
	if err != nil {
		return err
	}

	results, err := eng.Run(cmd.Context(), wf, workflowTarget)
	if err != nil {
		return err
	}

	fmt.Printf("\nWorkflow %q completed: %d result(s)\n", wf.Name, len(results))

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		result := results[name]
		status := "ok"
		if !result.Success {
			status = "FAILED"
			failed++
		}
		fmt.Printf("  %-24s %-8s %6dms", name, status, result.ExecutionTimeMS)
		if len(result.Warnings) > 0 {
			fmt.Printf("  (%d warning(s))", len(result.Warnings))
		}
		fmt.Println()
		for _, e := range result.Errors {
			fmt.Printf("      %s\n", e)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
	return nil
}
