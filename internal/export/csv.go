package export

import (
	"encoding/csv"
	"io"
	"iter"

	"github.com/simp-lee/catalog/internal/domain"
)

// CSV writes RFC 4180 comma separated values with a header line.
type CSV struct{}

// Format returns the registry format name.
func (CSV) Format() string { return "csv" }

// Extension returns the file extension without the dot.
func (CSV) Extension() string { return "csv" }

// ContentType returns the MIME type of the output.
func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

// Export writes the header and rows as CSV to w and returns the number of rows written.
func (CSV) Export(w io.Writer, rows iter.Seq2[domain.Row, error], columns []string) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, err
	}

	n := 0
	line := make([]string, len(columns))
	for row, err := range rows {
		if err != nil {
			cw.Flush()
			return n, err
		}
		for i, v := range record(row, columns) {
			line[i] = formatValue(v)
		}
		if err := cw.Write(line); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}
