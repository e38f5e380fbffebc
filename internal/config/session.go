package config

import (
	"fmt"
	"os"

	"invlearn/internal/errors"

	"gopkg.in/yaml.v3"
)

// Session describes one learning job as written in a YAML session file
type Session struct {
	Program   string   `yaml:"program"`
	Variables []string `yaml:"variables,omitempty"`
	Degree    int      `yaml:"degree"`
	Min       *int     `yaml:"min,omitempty"`
	Max       *int     `yaml:"max,omitempty"`
	Seed      *int64   `yaml:"seed,omitempty"`
}

// SessionFile is either a single session or a batch of them
type SessionFile struct {
	Sessions []Session `yaml:"sessions"`
}

// LoadSessionFile reads sessions from path. A file holding a single
// top-level session is accepted as a batch of one.
func LoadSessionFile(path string) ([]Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read session file %s", path)
	}
	return ParseSessions(data)
}

// ParseSessions decodes session YAML
func ParseSessions(data []byte) ([]Session, error) {
	var file SessionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	if len(file.Sessions) == 0 {
		var single Session
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
		file.Sessions = []Session{single}
	}

	for i := range file.Sessions {
		s := &file.Sessions[i]
		if s.Program == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("session %d has no program", i))
		}
		if s.Degree == 0 {
			s.Degree = 1
		}
		if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
			return nil, errors.InvalidInput(fmt.Sprintf("session %d: min %d exceeds max %d", i, *s.Min, *s.Max))
		}
	}
	return file.Sessions, nil
}
