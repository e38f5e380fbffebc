// Package tracefile loads and saves recorded traces. Tabular files (xlsx or
// csv) hold one state per row under the header
//
//	trace, label, <var1>, <var2>, ...
//
// where consecutive rows sharing a trace id form one trace. JSON files hold
//
//	{"variables": ["x", "y"], "traces": [{"label": "positive", "states": [[1, 2]]}]}
package tracefile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"invlearn/adapters/memory"
	"invlearn/domain/core"
	"invlearn/domain/trace"
	"invlearn/internal"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet read and written in xlsx files
const Sheet = "Traces"

// File is the content of a trace file
type File struct {
	Variables []string
	Traces    []trace.Trace
}

// Store loads every trace into a fresh in-memory store
func (f *File) Store() (*memory.TraceStore, error) {
	store := memory.NewTraceStore(len(f.Variables))
	for i, t := range f.Traces {
		if err := store.AppendTrace(t); err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
	}
	return store, nil
}

// Counts returns the number of traces per label
func (f *File) Counts() map[trace.Label]int {
	counts := make(map[trace.Label]int, len(trace.Labels))
	for _, t := range f.Traces {
		counts[t.Label]++
	}
	return counts
}

// Reader handles reading xlsx, csv and json trace files
type Reader struct {
	filePath string
	fileType string
	logger   *internal.Logger
}

// NewReader creates a reader; the file type follows the extension
func NewReader(filePath string) *Reader {
	return &Reader{filePath: filePath, fileType: fileType(filePath), logger: internal.DefaultLogger}
}

func fileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	default:
		return "xlsx"
	}
}

// WithLogger sets the logger
func (r *Reader) WithLogger(logger *internal.Logger) *Reader {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Read parses the whole file
func (r *Reader) Read() (*File, error) {
	startTime := time.Now()
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		f   *File
		err error
	)
	switch r.fileType {
	case "json":
		var data []byte
		if data, err = os.ReadFile(r.filePath); err == nil {
			f, err = ParseJSON(data)
		}
	case "csv":
		f, err = r.readCSV()
	default:
		f, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Info("[TraceFile] read %d traces over %d variables from %s in %v",
		len(f.Traces), len(f.Variables), r.filePath, time.Since(startTime))
	return f, nil
}

func (r *Reader) readExcel() (*File, error) {
	x, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer x.Close()

	sheet := Sheet
	if idx, err := x.GetSheetIndex(Sheet); err != nil || idx < 0 {
		sheet = x.GetSheetName(0)
	}
	rows, err := x.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return ParseRows(rows)
}

func (r *Reader) readCSV() (*File, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return ParseRows(rows)
}

// ParseRows converts a header row plus state rows into traces
func ParseRows(rows [][]string) (*File, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("trace file must have a header row")
	}
	header := rows[0]
	if len(header) < 3 || !strings.EqualFold(strings.TrimSpace(header[0]), "trace") || !strings.EqualFold(strings.TrimSpace(header[1]), "label") {
		return nil, fmt.Errorf("header must be trace, label, <variables...>; got %v", header)
	}
	f := &File{}
	for _, name := range header[2:] {
		f.Variables = append(f.Variables, strings.TrimSpace(name))
	}

	var (
		current *trace.Trace
		lastID  string
	)
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		if len(row) < len(header) {
			return nil, fmt.Errorf("row %d: %w", line, core.NewDimensionError("columns", len(header), len(row)))
		}
		label, err := trace.ParseLabel(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		state := make(trace.State, len(f.Variables))
		for j, cell := range row[2:len(header)] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", line, f.Variables[j], err)
			}
			state[j] = v
		}

		id := strings.TrimSpace(row[0])
		if current == nil || id != lastID {
			f.Traces = append(f.Traces, trace.Trace{Label: label})
			current = &f.Traces[len(f.Traces)-1]
			lastID = id
		} else if current.Label != label {
			return nil, fmt.Errorf("row %d: trace %s changes label from %s to %s", line, id, current.Label, label)
		}
		current.States = append(current.States, state)
	}
	return f, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseJSON reads the JSON trace format
func ParseJSON(data []byte) (*File, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON trace file")
	}
	doc := gjson.ParseBytes(data)

	f := &File{}
	for _, v := range doc.Get("variables").Array() {
		f.Variables = append(f.Variables, v.String())
	}
	if len(f.Variables) == 0 {
		return nil, fmt.Errorf("%w: trace file names no variables", core.ErrInvalidVariables)
	}

	var parseErr error
	doc.Get("traces").ForEach(func(key, value gjson.Result) bool {
		idx := len(f.Traces)
		label, err := trace.ParseLabel(value.Get("label").String())
		if err != nil {
			parseErr = fmt.Errorf("trace %d: %w", idx, err)
			return false
		}
		t := trace.Trace{Label: label}
		for _, in := range value.Get("input").Array() {
			t.Input = append(t.Input, int(in.Int()))
		}
		for si, st := range value.Get("states").Array() {
			values := st.Array()
			if len(values) != len(f.Variables) {
				parseErr = fmt.Errorf("trace %d state %d: %w", idx, si,
					core.NewDimensionError("state", len(f.Variables), len(values)))
				return false
			}
			state := make(trace.State, len(values))
			for k, v := range values {
				if v.Type != gjson.Number {
					parseErr = fmt.Errorf("trace %d state %d: %q is not a number", idx, si, v.Raw)
					return false
				}
				state[k] = v.Float()
			}
			t.States = append(t.States, state)
		}
		f.Traces = append(f.Traces, t)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return f, nil
}
