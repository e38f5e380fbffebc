package models

import (
	"testing"

	"invlearn/domain/core"
	"invlearn/domain/equation"
)

func TestCoefficients_ValueScan(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  Coefficients
		isErr bool
	}{
		{name: "bytes", input: []byte("[1,-2.5,0]"), want: Coefficients{1, -2.5, 0}},
		{name: "string", input: "[3]", want: Coefficients{3}},
		{name: "nil", input: nil, want: nil},
		{name: "empty", input: []byte{}, want: nil},
		{name: "bad json", input: []byte("{"), isErr: true},
		{name: "unsupported", input: 42, isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Coefficients
			err := c.Scan(tt.input)
			if (err != nil) != tt.isErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.isErr)
			}
			if tt.isErr {
				return
			}
			if len(c) != len(tt.want) {
				t.Fatalf("Scan() = %v, want %v", c, tt.want)
			}
			for i := range c {
				if c[i] != tt.want[i] {
					t.Errorf("Scan()[%d] = %v, want %v", i, c[i], tt.want[i])
				}
			}
		})
	}

	v, err := Coefficients(nil).Value()
	if err != nil || string(v.([]byte)) != "[]" {
		t.Errorf("nil Value() = %v, %v", v, err)
	}
}

func TestNewInvariant_RoundTrip(t *testing.T) {
	vars, err := equation.NewVariables("i", "k")
	if err != nil {
		t.Fatal(err)
	}
	h := equation.MustFromCoefficients(2, 1, 0, -3, 3)
	normalized, _ := h.Normalize()

	inv := NewInvariant(core.NewSessionID(), "substring1", vars, h, normalized)
	if inv.ID.String() == "" {
		t.Error("expected an ID")
	}
	if inv.Normalized != "-i + k >= 0" {
		t.Errorf("Normalized = %q", inv.Normalized)
	}

	back, err := inv.Hyperplane()
	if err != nil {
		t.Fatalf("Hyperplane() error = %v", err)
	}
	if !back.ApproximatelyEquals(h, 6) {
		t.Errorf("Hyperplane() = %v, want %v", back, h)
	}

	// stored coefficients are a copy
	inv.Coefficients[1] = 100
	if c, _ := h.Coefficient(1); c != -3 {
		t.Errorf("source hyperplane mutated: %v", c)
	}
}

func TestLearningSession_Lifecycle(t *testing.T) {
	s := NewLearningSession(core.NewSessionID(), "count_up", nil)
	if s.Done() || s.Metadata == nil {
		t.Fatalf("new session = %+v", s)
	}

	s.Finish(SessionStatusConverged, 4, "x >= 0")
	if !s.Done() || s.CompletedAt == nil || s.Iterations != 4 {
		t.Errorf("after Finish = %+v", s)
	}

	s.SetError("boom")
	if s.Status != SessionStatusFailed || !s.Error.Valid || s.Error.String != "boom" {
		t.Errorf("after SetError = %+v", s)
	}
}

func TestJSONBMap_Scan(t *testing.T) {
	var m JSONBMap
	if err := m.Scan([]byte(`{"seed":7}`)); err != nil {
		t.Fatal(err)
	}
	if m["seed"] != float64(7) {
		t.Errorf("seed = %v", m["seed"])
	}
	if err := m.Scan(nil); err != nil || len(m) != 0 {
		t.Errorf("Scan(nil) = %v, %v", m, err)
	}
}
