package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// Result holds the parsed rows from one CSV ingestion
type Result struct {
	Items     []batch.Item `json:"items"`
	TotalRows int          `json:"total_rows"`
}

// StructuralError means the CSV could not produce any rows. It is fatal to
// the whole batch; no partial rows are returned alongside it.
type StructuralError struct {
	Line int // 1-based source line (header = 1), 0 when not line-specific
	Msg  string
	Err  error
}

func (e *StructuralError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error at line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// ParseCSV parses a header-tagged CSV stream into batch items.
//
// The header must contain a "content" column (case-insensitive); "type" and
// "label" columns are optional. Rows with a blank content cell are skipped
// but still consume a row number, so item row numbers are strictly
// increasing with gaps. Rows without an explicit type are classified from
// their content.
func ParseCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &StructuralError{Line: 1, Msg: "failed to read CSV header", Err: err}
	}

	contentIdx := -1
	typeIdx := -1
	labelIdx := -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "content":
			if contentIdx < 0 {
				contentIdx = i
			}
		case "type":
			if typeIdx < 0 {
				typeIdx = i
			}
		case "label":
			if labelIdx < 0 {
				labelIdx = i
			}
		}
	}
	if contentIdx < 0 {
		return nil, &StructuralError{Msg: `CSV must have a "content" column`}
	}

	var items []batch.Item
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// +1 accounts for the header line.
			return nil, &StructuralError{Line: row + 1, Msg: "malformed CSV row", Err: err}
		}

		content := strings.TrimSpace(cell(rec, contentIdx))
		if content == "" {
			continue
		}

		qrType := batch.ContentType(strings.ToLower(strings.TrimSpace(cell(rec, typeIdx))))
		if qrType == "" {
			qrType = batch.Classify(content)
		}

		items = append(items, batch.Item{
			Row:     row,
			Content: content,
			QRType:  qrType,
			Label:   strings.TrimSpace(cell(rec, labelIdx)),
		})
	}

	return &Result{Items: items, TotalRows: len(items)}, nil
}

// ParseCSVString parses CSV content held in memory
func ParseCSVString(content string) (*Result, error) {
	return ParseCSV(strings.NewReader(content))
}

// ParseCSVFile parses a CSV file from disk
func ParseCSVFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
