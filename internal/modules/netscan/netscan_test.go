// SPDX-License-Identifier: Apache-2.0

package netscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `Starting Nmap 7.94 ( https://nmap.org ) at 2026-08-23 10:00 UTC
Nmap scan report for 10.0.0.5
Host is up (0.0010s latency).
Not shown: 997 closed tcp ports (conn-refused)

PORT    STATE SERVICE
22/tcp  open  ssh
80/tcp  open  http
443/tcp open  https

Nmap done: 1 IP address (1 host up) scanned in 0.12 seconds
`

func TestParseOpenPorts(t *testing.T) {
	ports := ParseOpenPorts(sampleOutput)
	assert.Equal(t, []int{22, 80, 443}, ports)
}

func TestParseOpenPortsNoneFound(t *testing.T) {
	output := `Nmap scan report for 10.0.0.5
All 1000 scanned ports on 10.0.0.5 are in ignored states.
Nmap done: 1 IP address (1 host up) scanned in 1.20 seconds
`
	assert.Empty(t, ParseOpenPorts(output))
}

func TestParseOpenPortsIgnoresMalformedLines(t *testing.T) {
	output := "open sesame\n/tcp open oddity\nabc/tcp open notaport\n8080/tcp open http-proxy\n"
	assert.Equal(t, []int{8080}, ParseOpenPorts(output))
}

func TestDescriptor(t *testing.T) {
	mod := New(false)
	desc := mod.Metadata()

	assert.Equal(t, "network_scanner", desc.Name)
	assert.Equal(t, "scanners", desc.Category)
	assert.Contains(t, desc.Dependencies, "nmap")

	target, ok := desc.Inputs["target"]
	require.True(t, ok)
	assert.True(t, target.Required)

	ports, ok := desc.Inputs["ports"]
	require.True(t, ok)
	require.NotNil(t, ports.DefaultValue)
	assert.Equal(t, "1-1000", *ports.DefaultValue)
}

func TestValidateInputsScanType(t *testing.T) {
	mod := New(false)

	assert.NoError(t, mod.ValidateInputs(map[string]interface{}{
		"target":    "10.0.0.5",
		"scan_type": "syn",
	}))
	assert.Error(t, mod.ValidateInputs(map[string]interface{}{
		"target":    "10.0.0.5",
		"scan_type": "xmas",
	}))
	assert.Error(t, mod.ValidateInputs(map[string]interface{}{
		"target": "10.0.0.5; rm -rf /",
	}))
}

func TestScanFlag(t *testing.T) {
	assert.Equal(t, "-sT", scanFlag("tcp"))
	assert.Equal(t, "-sS", scanFlag("syn"))
	assert.Equal(t, "-sU", scanFlag("udp"))
	assert.Equal(t, "-sT", scanFlag("anything-else"))
}
