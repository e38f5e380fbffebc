package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"invlearn/domain/core"
	"invlearn/domain/equation"
)

// CodeVersion is stamped into every manifest
const CodeVersion = "1.0.0"

// Manifest is everything needed to replay a learning session
type Manifest struct {
	SessionID   core.SessionID   `json:"session_id"`
	Program     core.ProgramName `json:"program"`
	Variables   []string         `json:"variables"`
	Degree      int              `json:"degree"`
	Bounds      equation.Bounds  `json:"bounds"`
	Seed        int64            `json:"seed"`
	CodeVersion string           `json:"code_version"`
	Fingerprint string           `json:"fingerprint"` // Hash of all above except the session ID
	CreatedAt   core.Timestamp   `json:"created_at"`
}

// NewManifest creates a manifest and computes its fingerprint
func NewManifest(sessionID core.SessionID, program core.ProgramName, vars equation.Variables, degree int, bounds equation.Bounds, seed int64) *Manifest {
	m := &Manifest{
		SessionID:   sessionID,
		Program:     program,
		Variables:   vars.Names(),
		Degree:      degree,
		Bounds:      bounds.Normalized(),
		Seed:        seed,
		CodeVersion: CodeVersion,
		CreatedAt:   core.Now(),
	}
	m.Fingerprint = m.computeFingerprint()
	return m
}

// computeFingerprint generates deterministic hash from all determinism parameters
func (m *Manifest) computeFingerprint() string {
	data := fmt.Sprintf("program:%s|vars:%s|degree:%d|bounds:%d..%d|seed:%d|code:%s",
		m.Program, strings.Join(m.Variables, ","), m.Degree, m.Bounds.Min, m.Bounds.Max, m.Seed, m.CodeVersion)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.SessionID).IsEmpty() {
		return fmt.Errorf("manifest: session_id cannot be empty")
	}
	if m.Program == "" {
		return fmt.Errorf("manifest: program cannot be empty")
	}
	if _, err := equation.Dimension(len(m.Variables), m.Degree); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if m.Fingerprint != m.computeFingerprint() {
		return fmt.Errorf("manifest: fingerprint does not match contents")
	}
	return nil
}

// Metadata flattens the manifest for storage next to a session record
func (m *Manifest) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"variables":    m.Variables,
		"degree":       m.Degree,
		"bounds_min":   m.Bounds.Min,
		"bounds_max":   m.Bounds.Max,
		"seed":         m.Seed,
		"code_version": m.CodeVersion,
		"fingerprint":  m.Fingerprint,
	}
}
