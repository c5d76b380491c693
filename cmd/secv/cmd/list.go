// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/0xbv1/secv/internal/core/models"
)

var listCategory string

var riskStyles = map[models.RiskLevel]lipgloss.Style{
	models.RiskLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	models.RiskMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	models.RiskHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	models.RiskCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded modules grouped by category",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "show only this category")
	rootCmd.AddCommand(listCmd)
}

func runList() error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	categories := reg.ByCategory()
	if listCategory != "" {
		if _, ok := categories[listCategory]; !ok {
			return fmt.Errorf("no modules in category %q", listCategory)
		}
		for cat := range categories {
			if cat != listCategory {
				delete(categories, cat)
			}
		}
	}

	names := make([]string, 0, len(categories))
	for cat := range categories {
		names = append(names, cat)
	}
	sort.Strings(names)

	total := 0
	for _, cat := range names {
		fmt.Printf("%s:\n", cat)
		for _, mod := range categories[cat] {
			desc := mod.Metadata()
			risk := riskStyles[desc.RiskLevel].Render(desc.RiskLevel.String())
			fmt.Printf("  %-24s v%-10s %-8s %s\n", desc.Name, desc.Version, risk, desc.Description)
			total++
		}
	}
	fmt.Printf("\n%d module(s)\n", total)
	return nil
}
