package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"invlearn/domain/core"
)

// JSONBMap is a custom type for PostgreSQL JSONB columns that maps to map[string]interface{}
type JSONBMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONBMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = make(JSONBMap)
		return nil
	}

	if len(bytes) == 0 {
		*j = make(JSONBMap)
		return nil
	}

	result := make(JSONBMap)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// SessionStatus mirrors the final state of the learning loop
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusConverged SessionStatus = "converged"
	SessionStatusRejected  SessionStatus = "rejected"
	SessionStatusFailed    SessionStatus = "failed"
)

// LearningSession is the stored summary of one learning run
type LearningSession struct {
	ID          core.SessionID   `json:"id" db:"id"`
	Program     core.ProgramName `json:"program" db:"program"`
	Status      SessionStatus    `json:"status" db:"status"`
	Iterations  int              `json:"iterations" db:"iterations"`
	Readable    string           `json:"readable" db:"readable"`
	Error       sql.NullString   `json:"error,omitempty" db:"error_message"`
	Metadata    JSONBMap         `json:"metadata" db:"metadata"`
	StartedAt   time.Time        `json:"started_at" db:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// NewLearningSession creates a running session record
func NewLearningSession(id core.SessionID, program core.ProgramName, metadata map[string]interface{}) *LearningSession {
	now := time.Now().UTC()
	jsonbMetadata := JSONBMap(metadata)
	if jsonbMetadata == nil {
		jsonbMetadata = make(JSONBMap)
	}
	return &LearningSession{
		ID:        id,
		Program:   program,
		Status:    SessionStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  jsonbMetadata,
	}
}

// Finish records the final status
func (s *LearningSession) Finish(status SessionStatus, iterations int, readable string) {
	now := time.Now().UTC()
	s.Status = status
	s.Iterations = iterations
	s.Readable = readable
	s.CompletedAt = &now
	s.UpdatedAt = now
}

// SetError marks the session failed with a message
func (s *LearningSession) SetError(err string) {
	now := time.Now().UTC()
	s.Status = SessionStatusFailed
	s.Error = sql.NullString{String: err, Valid: err != ""}
	s.CompletedAt = &now
	s.UpdatedAt = now
}

// Done reports whether the session has finished
func (s *LearningSession) Done() bool {
	return s.Status != SessionStatusRunning
}
