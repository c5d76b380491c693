// SPDX-License-Identifier: Apache-2.0

// Package tui is the interactive terminal menu over the module registry:
// browse modules, inspect descriptors, run a module against a target, and
// check runtime dependencies.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xbv1/secv/internal/core/models"
	"github.com/0xbv1/secv/internal/core/module"
	"github.com/0xbv1/secv/internal/core/registry"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type screen int

const (
	screenMenu screen = iota
	screenModules
	screenInfo
	screenTarget
	screenResult
	screenHealth
)

type menuItem struct {
	label  string
	target screen
}

type healthEntry struct {
	name    string
	healthy bool
	detail  string
}

type healthDoneMsg []healthEntry

type runDoneMsg struct {
	rendered string
}

// Model is the bubbletea model for the interactive menu.
type Model struct {
	registry *registry.Registry
	screen   screen
	cursor   int
	items    []menuItem

	moduleNames  []string
	moduleCursor int

	targetInput string
	runOutput   string
	running     bool

	health   []healthEntry
	checking bool
}

// NewModel builds the menu over a populated registry.
func NewModel(reg *registry.Registry) Model {
	return Model{
		registry: reg,
		items: []menuItem{
			{label: "Browse modules", target: screenModules},
			{label: "Health check", target: screenHealth},
		},
		moduleNames: reg.Names(),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case healthDoneMsg:
		m.health = msg
		m.checking = false
		return m, nil

	case runDoneMsg:
		m.running = false
		m.runOutput = msg.rendered
		m.screen = screenResult
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenTarget {
			return m.updateTargetInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.screen = m.parentScreen()
			return m, nil
		case "up", "k":
			m.moveCursor(-1)
		case "down", "j":
			m.moveCursor(1)
		case "r":
			if m.screen == screenInfo {
				m.screen = screenTarget
				m.targetInput = ""
			}
		case "enter":
			return m.selectCurrent()
		}
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.screen {
	case screenMenu:
		m.cursor = clamp(m.cursor+delta, 0, len(m.items)-1)
	case screenModules:
		m.moduleCursor = clamp(m.moduleCursor+delta, 0, len(m.moduleNames)-1)
	}
}

func (m Model) parentScreen() screen {
	switch m.screen {
	case screenInfo, screenResult:
		return screenModules
	case screenTarget:
		return screenInfo
	default:
		return screenMenu
	}
}

func (m Model) selectCurrent() (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenMenu:
		m.screen = m.items[m.cursor].target
		if m.screen == screenHealth {
			m.checking = true
			m.health = nil
			return m, m.runHealthChecks()
		}
	case screenModules:
		if len(m.moduleNames) > 0 {
			m.screen = screenInfo
		}
	}
	return m, nil
}

func (m Model) updateTargetInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.screen = screenInfo
		return m, nil
	case "enter":
		if m.targetInput == "" || m.running {
			return m, nil
		}
		m.running = true
		return m, m.runSelected(m.targetInput)
	case "backspace":
		if len(m.targetInput) > 0 {
			m.targetInput = m.targetInput[:len(m.targetInput)-1]
		}
		return m, nil
	default:
		if msg.Type == tea.KeyRunes {
			m.targetInput += string(msg.Runes)
		}
		return m, nil
	}
}

func (m Model) selectedModule() (module.Module, bool) {
	if m.moduleCursor >= len(m.moduleNames) {
		return nil, false
	}
	return m.registry.Get(m.moduleNames[m.moduleCursor])
}

// runSelected executes the highlighted module against the typed target off
// the update loop and renders the result as JSON.
func (m Model) runSelected(target string) tea.Cmd {
	mod, ok := m.selectedModule()
	if !ok {
		return func() tea.Msg { return runDoneMsg{rendered: "module no longer loaded"} }
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		ec := models.NewExecutionContext(target)
		ec.Parameters["target"] = target
		module.ApplyDefaults(mod.Metadata(), ec.Parameters)

		if err := mod.ValidateInputs(ec.Parameters); err != nil {
			return runDoneMsg{rendered: err.Error()}
		}

		result, err := mod.Execute(ctx, ec.Clone())
		if cleanupErr := mod.Cleanup(); cleanupErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("cleanup failed: %v", cleanupErr))
		}
		if err != nil {
			return runDoneMsg{rendered: err.Error()}
		}

		pretty, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return runDoneMsg{rendered: err.Error()}
		}
		return runDoneMsg{rendered: string(pretty)}
	}
}

// runHealthChecks probes every loaded module off the update loop.
func (m Model) runHealthChecks() tea.Cmd {
	reg := m.registry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		entries := []healthEntry{}
		for _, name := range reg.Names() {
			mod, ok := reg.Get(name)
			if !ok {
				continue
			}
			healthy, err := mod.HealthCheck(ctx)
			entry := healthEntry{name: name, healthy: healthy}
			if err != nil {
				entry.detail = err.Error()
			}
			entries = append(entries, entry)
		}
		return healthDoneMsg(entries)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SecV") + dimStyle.Render("  module orchestration platform") + "\n\n")

	switch m.screen {
	case screenModules:
		m.viewModules(&b)
	case screenInfo:
		m.viewInfo(&b)
	case screenTarget:
		m.viewTarget(&b)
	case screenResult:
		m.viewResult(&b)
	case screenHealth:
		m.viewHealth(&b)
	default:
		m.viewMenu(&b)
	}

	b.WriteString("\n" + dimStyle.Render(m.helpLine()) + "\n")
	return b.String()
}

func (m Model) helpLine() string {
	switch m.screen {
	case screenInfo:
		return "r run · esc back · q quit"
	case screenTarget:
		return "enter run · esc cancel"
	case screenResult:
		return "esc back · q quit"
	default:
		return "enter select · esc back · q quit"
	}
}

func (m Model) viewMenu(b *strings.Builder) {
	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+item.label) + "\n")
		} else {
			b.WriteString("  " + item.label + "\n")
		}
	}
}

func (m Model) viewModules(b *strings.Builder) {
	if len(m.moduleNames) == 0 {
		b.WriteString(dimStyle.Render("no modules loaded") + "\n")
		return
	}
	for i, name := range m.moduleNames {
		mod, ok := m.registry.Get(name)
		if !ok {
			continue
		}
		desc := mod.Metadata()
		line := fmt.Sprintf("%-24s %s", name, dimStyle.Render(desc.Category))
		if i == m.moduleCursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
}

func (m Model) viewInfo(b *strings.Builder) {
	mod, ok := m.selectedModule()
	if !ok {
		b.WriteString(dimStyle.Render("module no longer loaded") + "\n")
		return
	}
	desc := mod.Metadata()

	b.WriteString(categoryStyle.Render(fmt.Sprintf("%s v%s", desc.Name, desc.Version)) + "\n")
	b.WriteString(fmt.Sprintf("  category: %s   risk: %s\n", desc.Category, desc.RiskLevel))
	b.WriteString("  " + desc.Description + "\n")
	if len(desc.Dependencies) > 0 {
		b.WriteString("  depends on: " + strings.Join(desc.Dependencies, ", ") + "\n")
	}

	if len(desc.Inputs) > 0 {
		b.WriteString("\n  inputs:\n")
		names := make([]string, 0, len(desc.Inputs))
		for n := range desc.Inputs {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			spec := desc.Inputs[n]
			note := spec.InputType
			if spec.Required {
				note += ", required"
			} else if spec.DefaultValue != nil {
				note += ", default " + *spec.DefaultValue
			}
			b.WriteString(fmt.Sprintf("    %-16s %s\n", n, dimStyle.Render(note)))
		}
	}
}

func (m Model) viewTarget(b *strings.Builder) {
	mod, ok := m.selectedModule()
	if !ok {
		b.WriteString(dimStyle.Render("module no longer loaded") + "\n")
		return
	}
	b.WriteString(fmt.Sprintf("Run %s against:\n\n", mod.Metadata().Name))
	b.WriteString("  > " + m.targetInput + "_\n")
	if m.running {
		b.WriteString("\n" + dimStyle.Render("running...") + "\n")
	}
}

func (m Model) viewResult(b *strings.Builder) {
	b.WriteString(m.runOutput + "\n")
}

func (m Model) viewHealth(b *strings.Builder) {
	if m.checking {
		b.WriteString(dimStyle.Render("checking module dependencies...") + "\n")
		return
	}
	if len(m.health) == 0 {
		b.WriteString(dimStyle.Render("no modules loaded") + "\n")
		return
	}
	for _, entry := range m.health {
		if entry.healthy {
			b.WriteString(okStyle.Render("  ok   ") + entry.name + "\n")
		} else {
			b.WriteString(failStyle.Render("  fail ") + entry.name + "  " + dimStyle.Render(entry.detail) + "\n")
		}
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Run starts the interactive menu and blocks until the user quits.
func Run(reg *registry.Registry) error {
	_, err := tea.NewProgram(NewModel(reg)).Run()
	return err
}
