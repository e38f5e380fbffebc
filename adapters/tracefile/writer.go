package tracefile

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"invlearn/domain/trace"
	"invlearn/ports"

	"github.com/xuri/excelize/v2"
)

// FromStore collects every trace of a store, label by label
func FromStore(store ports.TraceReader, variables []string) (*File, error) {
	f := &File{Variables: append([]string(nil), variables...)}
	for _, label := range trace.Labels {
		traces, err := ports.ReadTraces(store, label)
		if err != nil {
			return nil, fmt.Errorf("read %s traces: %w", label, err)
		}
		f.Traces = append(f.Traces, traces...)
	}
	return f, nil
}

// Rows renders the tabular form, header first
func (f *File) Rows() [][]string {
	rows := make([][]string, 0, 1+len(f.Traces))
	rows = append(rows, append([]string{"trace", "label"}, f.Variables...))
	for i, t := range f.Traces {
		id := strconv.Itoa(i)
		for _, st := range t.States {
			row := make([]string, 0, 2+len(st))
			row = append(row, id, t.Label.String())
			for _, v := range st {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Write saves the file; the format follows the extension of path
func (f *File) Write(path string) error {
	switch fileType(path) {
	case "csv":
		return f.writeCSV(path)
	case "json":
		return f.writeJSON(path)
	default:
		return f.writeExcel(path)
	}
}

func (f *File) writeExcel(path string) error {
	x := excelize.NewFile()
	defer x.Close()
	if err := x.SetSheetName("Sheet1", Sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, row := range f.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if i > 0 && j >= 2 {
				n, _ := strconv.ParseFloat(v, 64)
				values[j] = n
				continue
			}
			values[j] = v
		}
		if err := x.SetSheetRow(Sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := x.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func (f *File) writeCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(f.Rows()); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return file.Close()
}

type jsonTrace struct {
	Label  string        `json:"label"`
	Input  []int         `json:"input,omitempty"`
	States []trace.State `json:"states"`
}

func (f *File) writeJSON(path string) error {
	doc := struct {
		Variables []string    `json:"variables"`
		Traces    []jsonTrace `json:"traces"`
	}{Variables: f.Variables, Traces: make([]jsonTrace, 0, len(f.Traces))}
	for _, t := range f.Traces {
		doc.Traces = append(doc.Traces, jsonTrace{Label: t.Label.String(), Input: t.Input, States: t.States})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}
