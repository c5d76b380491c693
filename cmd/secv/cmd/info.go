// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xbv1/secv/internal/core/secverr"
)

var infoCmd = &cobra.Command{
	Use:   "info <module>",
	Short: "Show a module's descriptor",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInfo(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(name string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	mod, ok := reg.Get(name)
	if !ok {
		return &secverr.ModuleNotFoundError{Name: name}
	}
	desc := mod.Metadata()

	fmt.Printf("%s v%s\n", desc.Name, desc.Version)
	fmt.Printf("  Category:    %s\n", desc.Category)
	fmt.Printf("  Author:      %s\n", desc.Author)
	fmt.Printf("  Risk level:  %s\n", desc.RiskLevel)
	fmt.Printf("  Description: %s\n", desc.Description)
	if len(desc.Dependencies) > 0 {
		fmt.Printf("  Dependencies: %s\n", strings.Join(desc.Dependencies, ", "))
	}
	if len(desc.Capabilities) > 0 {
		fmt.Printf("  Capabilities: %s\n", strings.Join(desc.Capabilities, ", "))
	}

	if len(desc.Inputs) > 0 {
		fmt.Println("  Inputs:")
		names := make([]string, 0, len(desc.Inputs))
		for n := range desc.Inputs {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			spec := desc.Inputs[n]
			line := fmt.Sprintf("    %-16s %s", n, spec.InputType)
			if spec.Required {
				line += " (required)"
			} else if spec.DefaultValue != nil {
				line += fmt.Sprintf(" (default: %s)", *spec.DefaultValue)
			}
			fmt.Printf("%s  %s\n", line, spec.Description)
		}
	}

	if len(desc.Outputs) > 0 {
		fmt.Println("  Outputs:")
		names := make([]string, 0, len(desc.Outputs))
		for n := range desc.Outputs {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			spec := desc.Outputs[n]
			fmt.Printf("    %-16s %s  %s\n", n, spec.OutputType, spec.Description)
		}
	}
	return nil
}
