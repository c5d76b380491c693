// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var moduleCategories = []string{
	"scanners",
	"enumeration",
	"exploitation",
	"post-exploitation",
	"reporting",
}

const exampleDefinition = `{
  "name": "whois_lookup",
  "version": "1.0.0",
  "category": "enumeration",
  "description": "WHOIS registration lookup for a domain",
  "author": "SecV Team",
  "risk_level": "low",
  "dependencies": ["whois"],
  "inputs": {
    "target": {
      "description": "Domain to look up",
      "input_type": "string",
      "required": true
    }
  },
  "outputs": {
    "output": {
      "description": "Raw WHOIS response",
      "output_type": "string",
      "format": "text"
    }
  },
  "execution": {
    "command": "whois",
    "args": ["{{.target}}"],
    "parse": "text"
  }
}
`

const exampleWorkflow = `name: basic_recon
description: Port scan followed by a WHOIS lookup of the target
version: "1.0"
author: SecV Team
steps:
  - name: scan
    module: network_scanner
    inputs:
      target: "${target}"
      ports: "1-1024"
    timeout_seconds: 600
    on_error: stop
  - name: whois
    module: whois_lookup
    inputs:
      target: "${target}"
    on_error: continue
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold the tools and workflows directory structure",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// runInit creates the directory layout and drops example files. Existing
// files are left untouched.
func runInit() error {
	for _, category := range moduleCategories {
		dir := filepath.Join(cfg.ToolsDir, category)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(cfg.WorkflowsDir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", cfg.WorkflowsDir, err)
	}

	examples := map[string]string{
		filepath.Join(cfg.ToolsDir, "enumeration", "whois_lookup", "module.json"): exampleDefinition,
		filepath.Join(cfg.WorkflowsDir, "basic_recon.yaml"):                       exampleWorkflow,
	}
	for path, content := range examples {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("  exists: %s\n", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("error creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
		fmt.Printf("  created: %s\n", path)
	}

	fmt.Printf("\nInitialized %s and %s\n", cfg.ToolsDir, cfg.WorkflowsDir)
	return nil
}
