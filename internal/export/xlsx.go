package export

import (
	"io"
	"iter"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/simp-lee/catalog/internal/domain"
)

const xlsxSheet = "Sheet1"

// XLSX writes an Excel workbook with one sheet through excelize's stream
// writer, which spills rows to a temporary file instead of keeping them in memory.
type XLSX struct{}

// Format returns the registry format name.
func (XLSX) Format() string { return "xlsx" }

// Extension returns the file extension without the dot.
func (XLSX) Extension() string { return "xlsx" }

// ContentType returns the MIME type of the output.
func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export writes a header row and one worksheet row per entry to w and returns the number of rows written.
func (XLSX) Export(w io.Writer, rows iter.Seq2[domain.Row, error], columns []string) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return 0, err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, err
	}

	n := 0
	for row, err := range rows {
		if err != nil {
			return n, err
		}
		values := record(row, columns)
		for i, v := range values {
			values[i] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return n, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return n, err
		}
		n++
	}

	if err := sw.Flush(); err != nil {
		return n, err
	}
	return n, f.Write(w)
}

// cellValue keeps numbers, booleans and times native and renders everything
// else as text.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return x
	case time.Time:
		return x.UTC()
	default:
		return formatValue(x)
	}
}
