// Package programs is the catalogue of instrumented loops invariants can be
// learned for.
package programs

import (
	"fmt"
	"sort"
	"sync"

	"invlearn/adapters/harness"
	"invlearn/domain/core"
)

// Entry describes a registered program
type Entry struct {
	Name        core.ProgramName
	Description string
	Variables   []string
	Program     harness.Program
}

var (
	mu       sync.RWMutex
	registry = map[core.ProgramName]Entry{}
)

// Register adds a program; names must be unique
func Register(e Entry) error {
	if e.Name.String() == "" || e.Program == nil || len(e.Variables) == 0 {
		return fmt.Errorf("program entry %q is incomplete", e.Name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[e.Name]; ok {
		return fmt.Errorf("program %q already registered", e.Name)
	}
	registry[e.Name] = e
	return nil
}

func mustRegister(e Entry) {
	if err := Register(e); err != nil {
		panic(err)
	}
}

// Lookup finds a program by name
func Lookup(name core.ProgramName) (Entry, error) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", core.ErrProgramNotFound, name)
	}
	return e, nil
}

// Names lists registered programs alphabetically
func Names() []core.ProgramName {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]core.ProgramName, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
