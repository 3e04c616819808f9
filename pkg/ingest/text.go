package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// FormatTestCases puts a blank line before every top-level test function so each test case
// starts a new paragraph for the splitter.
func FormatTestCases(source string) string {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "def test_") {
			out = append(out, "\n"+line)
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// CSVRows renders every data row as "header: value" lines, one document per row.
func CSVRows(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var docs []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(docs)+1, err)
		}
		var b strings.Builder
		for i, value := range record {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(strings.TrimSpace(value))
		}
		docs = append(docs, b.String())
	}
	return docs, nil
}

func decodeText(data []byte) string {
	// strip UTF-8 BOM
	return strings.TrimPrefix(string(data), "\ufeff")
}
