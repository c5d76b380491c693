// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check every loaded module's runtime dependencies",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runHealth(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	unhealthy := 0
	for _, name := range reg.Names() {
		mod, ok := reg.Get(name)
		if !ok {
			continue
		}
		healthy, healthErr := mod.HealthCheck(cmd.Context())
		if healthy {
			fmt.Printf("  ok    %s\n", name)
			continue
		}
		unhealthy++
		if healthErr != nil {
			fmt.Printf("  FAIL  %s: %v\n", name, healthErr)
		} else {
			fmt.Printf("  FAIL  %s\n", name)
		}
	}

	fmt.Printf("\n%d module(s) checked, %d unhealthy\n", reg.Len(), unhealthy)
	if unhealthy > 0 {
		os.Exit(1)
	}
	return nil
}
