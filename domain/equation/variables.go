package equation

import (
	"fmt"
	"strings"

	"invlearn/domain/core"
)

// Variables is the ordered list of program variables a session learns over.
type Variables struct {
	names []string
}

// NewVariables validates and stores variable names in order.
func NewVariables(names ...string) (Variables, error) {
	if len(names) == 0 {
		return Variables{}, fmt.Errorf("%w: no variables", core.ErrInvalidVariables)
	}
	seen := make(map[string]bool, len(names))
	clean := make([]string, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return Variables{}, fmt.Errorf("%w: variable %d has an empty name", core.ErrInvalidVariables, i)
		}
		if seen[name] {
			return Variables{}, fmt.Errorf("%w: duplicate variable %q", core.ErrInvalidVariables, name)
		}
		seen[name] = true
		clean[i] = name
	}
	return Variables{names: clean}, nil
}

// DefaultVariables names n variables x, y, z, or x1..xn beyond three.
func DefaultVariables(n int) Variables {
	names := make([]string, n)
	for i := range names {
		if n <= 3 {
			names[i] = string(rune('x' + i))
		} else {
			names[i] = fmt.Sprintf("x%d", i+1)
		}
	}
	return Variables{names: names}
}

// Len returns the number of variables
func (v Variables) Len() int {
	return len(v.names)
}

// Names returns a copy of the variable names
func (v Variables) Names() []string {
	return append([]string(nil), v.names...)
}

// MonomialNames renders the non-constant monomials for the given degree.
func (v Variables) MonomialNames(degree int) []string {
	monos := Monomials(len(v.names), degree)
	out := make([]string, len(monos))
	for i, mono := range monos {
		out[i] = v.monomialName(mono)
	}
	return out
}

func (v Variables) monomialName(mono []int) string {
	var parts []string
	for i := 0; i < len(mono); {
		j := i
		for j < len(mono) && mono[j] == mono[i] {
			j++
		}
		if power := j - i; power > 1 {
			parts = append(parts, fmt.Sprintf("%s^%d", v.names[mono[i]], power))
		} else {
			parts = append(parts, v.names[mono[i]])
		}
		i = j
	}
	return strings.Join(parts, "*")
}
