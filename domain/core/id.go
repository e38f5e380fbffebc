package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SessionID   ID
	InvariantID ID
	ProgramName ID
)

// String conversions for domain IDs
func (id SessionID) String() string   { return ID(id).String() }
func (id InvariantID) String() string { return ID(id).String() }
func (id ProgramName) String() string { return ID(id).String() }

// NewSessionID creates a time-ordered learning session identifier
func NewSessionID() SessionID {
	return SessionID(NewID())
}

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return SessionID(s), nil
}

// ParseProgramName parses a string into ProgramName
func ParseProgramName(s string) (ProgramName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("program name cannot be empty")
	}
	return ProgramName(strings.TrimSpace(s)), nil
}
