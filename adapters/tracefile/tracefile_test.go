package tracefile

import (
	"os"
	"path/filepath"
	"testing"

	"invlearn/domain/core"
	"invlearn/domain/trace"
	"invlearn/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *File {
	return &File{
		Variables: []string{"i", "k"},
		Traces: []trace.Trace{
			{Label: trace.Positive, States: []trace.State{{0, 2}, {1, 2}, {2, 2}}},
			{Label: trace.Negative, States: []trace.State{{5, 1}}},
			{Label: trace.Question, States: []trace.State{{-1, 3}, {0, 3}}},
			{Label: trace.CounterExample, States: []trace.State{{4, 3}}},
		},
	}
}

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{"trace", "label", "x", "y"},
		{"a", "positive", "1", "2"},
		{"a", "positive", "2", "3.5"},
		{"", "", "", ""},
		{"b", "-", "-4", "0"},
	}
	f, err := ParseRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, f.Variables)
	require.Len(t, f.Traces, 2)
	assert.Equal(t, trace.Positive, f.Traces[0].Label)
	assert.Equal(t, []trace.State{{1, 2}, {2, 3.5}}, f.Traces[0].States)
	assert.Equal(t, trace.Negative, f.Traces[1].Label)
	assert.Equal(t, map[trace.Label]int{trace.Positive: 1, trace.Negative: 1}, f.Counts())
}

func TestParseRows_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want error
	}{
		{"no header", nil, nil},
		{"bad header", [][]string{{"id", "kind", "x"}}, nil},
		{"short row", [][]string{{"trace", "label", "x", "y"}, {"a", "positive", "1"}}, core.ErrDimensionMismatch},
		{"bad label", [][]string{{"trace", "label", "x"}, {"a", "maybe", "1"}}, core.ErrUnknownLabel},
		{"bad number", [][]string{{"trace", "label", "x"}, {"a", "positive", "one"}}, nil},
		{"label change", [][]string{{"trace", "label", "x"}, {"a", "positive", "1"}, {"a", "negative", "2"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRows(tt.rows)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{
		"variables": ["x"],
		"traces": [
			{"label": "positive", "input": [3], "states": [[3], [4]]},
			{"label": "cex", "states": [[-2]]}
		]
	}`)
	f, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, f.Variables)
	require.Len(t, f.Traces, 2)
	assert.Equal(t, []int{3}, f.Traces[0].Input)
	assert.Equal(t, trace.CounterExample, f.Traces[1].Label)

	_, err = ParseJSON([]byte(`{"variables": ["x"], "traces": [{"label": "positive", "states": [[1, 2]]}]}`))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = ParseJSON([]byte(`{"traces": []}`))
	assert.ErrorIs(t, err, core.ErrInvalidVariables)

	_, err = ParseJSON([]byte(`{"variables": ["x"], "traces": [{"label": "positive", "states": [["a"]]}]}`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	for _, ext := range []string{".xlsx", ".csv", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "traces"+ext)
			require.NoError(t, sample().Write(path))

			got, err := NewReader(path).WithLogger(internal.NewNopLogger()).Read()
			require.NoError(t, err)
			assert.Equal(t, sample().Variables, got.Variables)
			assert.Equal(t, sample().Traces, got.Traces)
		})
	}
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.xlsx")).WithLogger(internal.NewNopLogger()).Read()
	assert.Error(t, err)
}

func TestReader_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"variables":["x"],"traces":[{"label":"negative","states":[[-1]]}]}`), 0o644))
	f, err := NewReader(path).WithLogger(internal.NewNopLogger()).Read()
	require.NoError(t, err)
	assert.Len(t, f.Traces, 1)
	assert.NoError(t, f.Write(path))
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := sample().Store()
	require.NoError(t, err)
	assert.Equal(t, 3, store.PositiveCount())
	assert.Equal(t, 1, store.NegativeCount())
	assert.Equal(t, 1, store.TraceCount(trace.Question))

	back, err := FromStore(store, []string{"i", "k"})
	require.NoError(t, err)
	assert.ElementsMatch(t, sample().Traces, back.Traces)

	_, err = (&File{Variables: []string{"x"}, Traces: sample().Traces}).Store()
	assert.Error(t, err)
}
