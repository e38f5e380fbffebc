package trace

import (
	"errors"
	"testing"

	"invlearn/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		assumed  bool
		asserted bool
		expected Label
	}{
		{true, true, Positive},
		{true, false, CounterExample},
		{false, true, Question},
		{false, false, Negative},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.assumed, tt.asserted), "assume=%v assert=%v", tt.assumed, tt.asserted)
	}
}

func TestLabelValuesMatchClassifierLabels(t *testing.T) {
	assert.Equal(t, -1, int(Negative))
	assert.Equal(t, 1, int(Positive))
}

func TestParseLabelRoundTrip(t *testing.T) {
	for _, l := range Labels {
		parsed, err := ParseLabel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
		assert.True(t, l.Valid())
	}

	_, err := ParseLabel("sideways")
	assert.True(t, errors.Is(err, core.ErrUnknownLabel))
	assert.False(t, Label(7).Valid())
}

func TestTraceLast(t *testing.T) {
	assert.Nil(t, Trace{}.Last())

	tr := Trace{Label: Question, States: []State{{1}, {2}, {3}}}
	assert.Equal(t, State{3}, tr.Last())
	assert.Equal(t, 3, tr.Len())
	assert.Len(t, tr.Points(), 3)
}
