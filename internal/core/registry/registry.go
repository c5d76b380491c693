// SPDX-License-Identifier: Apache-2.0

// Package registry owns the set of loaded module instances and indexes them
// by unique name and by category.
package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/0xbv1/secv/internal/core/format"
	"github.com/0xbv1/secv/internal/core/module"
	"github.com/0xbv1/secv/internal/core/schema"
	"github.com/0xbv1/secv/internal/core/secverr"
)

// definitionNames are the file names discovery recognizes inside a module
// directory, in preference order.
var definitionNames = []string{"module.json", "module.yaml", "module.yml"}

// Registry indexes module instances by name. Lookups are safe for concurrent
// readers; discovery and registration serialize against them.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]module.Module
	verbose bool
}

// New creates an empty registry.
func New(verbose bool) *Registry {
	return &Registry{
		modules: make(map[string]module.Module),
		verbose: verbose,
	}
}

// Register adds a module instance, typically a built-in. The descriptor name
// is the sole identity; empty or duplicate names are rejected.
func (r *Registry) Register(m module.Module) error {
	if m == nil {
		return fmt.Errorf("cannot register nil module")
	}
	name := m.Metadata().Name
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}
	r.modules[name] = m
	return nil
}

// Discover walks the tools directory for module definition files, validates
// each against the descriptor schema, and registers one ToolModule per valid
// definition. A definition that fails to parse or validate is reported and
// skipped; it never aborts discovery of the rest. Returns the number loaded.
func (r *Registry) Discover(toolsDir string) (int, error) {
	if _, err := os.Stat(toolsDir); err != nil {
		return 0, fmt.Errorf("tools directory %s: %w", toolsDir, err)
	}

	loaded := 0
	walkErr := filepath.WalkDir(toolsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Printf("Warning: cannot read %s: %v\n", path, err)
			return nil
		}
		if d.IsDir() || !isDefinitionFile(d.Name()) {
			return nil
		}

		if loadErr := r.loadDefinition(path); loadErr != nil {
			fmt.Printf("Warning: skipping %v\n", loadErr)
			return nil
		}
		loaded++
		return nil
	})
	if walkErr != nil {
		return loaded, fmt.Errorf("error scanning tools directory: %w", walkErr)
	}

	return loaded, nil
}

// loadDefinition parses, validates, and registers a single definition file.
func (r *Registry) loadDefinition(path string) error {
	var raw map[string]interface{}
	if err := format.ParseFile(path, &raw); err != nil {
		return &secverr.DefinitionError{Path: path, Err: err}
	}

	if err := schema.ValidateDefinition(raw); err != nil {
		return &secverr.DefinitionError{Path: path, Err: err}
	}

	// JSON round-trip gives the definition struct its typed fields with the
	// custom unmarshalling applied.
	defBytes, err := json.Marshal(raw)
	if err != nil {
		return &secverr.DefinitionError{Path: path, Err: err}
	}
	var def module.Definition
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return &secverr.DefinitionError{Path: path, Err: err}
	}

	tool := module.NewToolModule(def)
	tool.SetVerbose(r.verbose)
	if err := r.Register(tool); err != nil {
		return &secverr.DefinitionError{Path: path, Err: err}
	}

	if r.verbose {
		fmt.Printf("  Loaded: %s v%s (%s)\n", def.Name, def.Version, def.Category)
	}
	return nil
}

// Get returns the module for an exact, case-sensitive name match.
func (r *Registry) Get(name string) (module.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// ByCategory groups the current module set by category, computed on demand.
// Modules within a category are ordered by name.
func (r *Registry) ByCategory() map[string][]module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make(map[string][]module.Module)
	for _, m := range r.modules {
		cat := m.Metadata().Category
		categories[cat] = append(categories[cat], m)
	}
	for _, mods := range categories {
		sort.Slice(mods, func(i, j int) bool {
			return mods[i].Metadata().Name < mods[j].Metadata().Name
		})
	}
	return categories
}

// Names returns all loaded module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of loaded modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

func isDefinitionFile(name string) bool {
	lower := strings.ToLower(name)
	for _, known := range definitionNames {
		if lower == known {
			return true
		}
	}
	return false
}
