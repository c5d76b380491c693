// SPDX-License-Identifier: Apache-2.0

// Package netscan is the built-in nmap-backed port scanner module.
package netscan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/0xbv1/secv/internal/core/cmdexec"
	"github.com/0xbv1/secv/internal/core/models"
	"github.com/0xbv1/secv/internal/core/module"
)

const (
	defaultPorts    = "1-1000"
	defaultScanType = "tcp"
	hostTimeout     = "300s"
)

// Module scans a target for open ports by wrapping nmap. It carries no
// per-execution state, so one instance serves concurrent runs.
type Module struct {
	module.Base
	verbose bool
}

// New creates the scanner with its built-in descriptor.
func New(verbose bool) *Module {
	portsDefault := defaultPorts
	scanTypeDefault := defaultScanType

	return &Module{
		Base: module.Base{
			Descriptor: models.ModuleDescriptor{
				Name:        "network_scanner",
				Version:     "2.0.0",
				Category:    "scanners",
				Description: "Network port scanner using nmap",
				Author:      "SecV Team",
				Dependencies: []string{
					"nmap",
				},
				Inputs: map[string]models.InputSpec{
					"target": {
						Description:     "Target IP address, hostname, or CIDR range",
						InputType:       "string",
						Required:        true,
						ValidationRegex: `^[\w\.\-:/]+$`,
					},
					"ports": {
						Description:     "Port range to scan",
						InputType:       "string",
						Required:        false,
						DefaultValue:    &portsDefault,
						ValidationRegex: `^\d+(-\d+)?$`,
					},
					"scan_type": {
						Description:     "Scan technique: tcp, syn, or udp",
						InputType:       "string",
						Required:        false,
						DefaultValue:    &scanTypeDefault,
						ValidationRegex: `^(tcp|syn|udp)$`,
					},
				},
				Outputs: map[string]models.OutputSpec{
					"open_ports": {
						Description: "List of open port numbers",
						OutputType:  "list",
						Format:      "json",
					},
					"total_open_ports": {
						Description: "Count of open ports found",
						OutputType:  "integer",
						Format:      "json",
					},
				},
				Capabilities: []string{"port_scan", "service_detection"},
				RiskLevel:    models.RiskMedium,
			},
		},
		verbose: verbose,
	}
}

// Execute runs the scan against the context target. Scanner failures come
// back as a failed result so workflow error policy can act on them.
func (m *Module) Execute(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	start := time.Now()

	target := module.StringParam(ec.Parameters, "target", ec.Target)
	if target == "" {
		return failed(start, "no target provided"), nil
	}
	ports := module.StringParam(ec.Parameters, "ports", defaultPorts)
	scanType := module.StringParam(ec.Parameters, "scan_type", defaultScanType)

	args := []string{"-p", ports, scanFlag(scanType), "--open", "-T4", "--host-timeout", hostTimeout, target}

	if m.verbose {
		fmt.Printf("Scanning %s (ports %s, %s)\n", target, ports, scanType)
	}

	res, err := cmdexec.New("nmap", args...).WithVerbose(m.verbose).Run(ctx)
	if err != nil {
		msg := fmt.Sprintf("nmap failed: %v", err)
		if res != nil && len(res.Stderr) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(string(res.Stderr)))
		}
		return failed(start, msg), nil
	}

	openPorts := ParseOpenPorts(string(res.Stdout))

	result := models.ModuleResult{
		Success: true,
		Data: map[string]interface{}{
			"target":           target,
			"scan_type":        scanType,
			"port_range":       ports,
			"open_ports":       openPorts,
			"total_open_ports": len(openPorts),
			"scan_duration":    time.Since(start).Seconds(),
			"raw_output":       string(res.Stdout),
		},
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
	if len(openPorts) == 0 {
		result.Warnings = append(result.Warnings, "no open ports found in the scanned range")
	}
	return result, nil
}

// scanFlag maps the scan_type input onto the nmap technique flag.
func scanFlag(scanType string) string {
	switch scanType {
	case "syn":
		return "-sS"
	case "udp":
		return "-sU"
	default:
		return "-sT"
	}
}

// ParseOpenPorts extracts open port numbers from nmap's normal output,
// matching lines of the form "22/tcp open ssh".
func ParseOpenPorts(output string) []int {
	ports := []int{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "open") {
			continue
		}
		slash := strings.Index(line, "/")
		if slash <= 0 {
			continue
		}
		port, err := strconv.Atoi(line[:slash])
		if err != nil {
			continue
		}
		ports = append(ports, port)
	}
	return ports
}

func failed(start time.Time, msg string) models.ModuleResult {
	return models.ModuleResult{
		Success:         false,
		Data:            map[string]interface{}{},
		Errors:          []string{msg},
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}
