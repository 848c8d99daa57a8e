package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/bybunni/vector-space/internal/table"
)

// readCSV loads a source CSV into a table. headerRows 0 and 1 both mean a
// single header row; 2 means two header rows whose cells are joined into
// "Top/Sub" composite column names.
func readCSV(r io.Reader, headerRows int) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	var columns []string
	var dataStart int

	switch headerRows {
	case 0, 1:
		columns = records[0]
		dataStart = 1
	case 2:
		if len(records) < 2 {
			return nil, fmt.Errorf("csv declares 2 header rows but has %d", len(records))
		}
		top, sub := records[0], records[1]
		columns = make([]string, len(sub))
		for i := range sub {
			t := ""
			if i < len(top) {
				t = strings.TrimSpace(top[i])
			}
			s := strings.TrimSpace(sub[i])
			if t == "" {
				columns[i] = s
			} else {
				columns[i] = t + "/" + s
			}
		}
		dataStart = 2
	default:
		return nil, fmt.Errorf("header_rows must be 1 or 2, got %d", headerRows)
	}

	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}

	tbl := table.New(columns)
	for _, rec := range records[dataStart:] {
		tbl.Append(rec)
	}
	return tbl, nil
}

// writeCSV writes the table with a single header row.
func writeCSV(w io.Writer, tbl *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range tbl.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
