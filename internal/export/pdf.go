package export

import (
	"io"
	"iter"

	"github.com/go-pdf/fpdf"

	"github.com/simp-lee/catalog/internal/domain"
)

const (
	pdfFontSize   = 8
	pdfLineHeight = 6
)

// PDF writes a landscape A4 table. fpdf assembles the document in memory, so
// PDF suits moderate row counts.
type PDF struct{}

// Format returns the registry format name.
func (PDF) Format() string { return "pdf" }

// Extension returns the file extension without the dot.
func (PDF) Extension() string { return "pdf" }

// ContentType returns the MIME type of the output.
func (PDF) ContentType() string { return "application/pdf" }

// Export renders a table with a header row and one line per entry to w and returns the number of rows written.
func (PDF) Export(w io.Writer, rows iter.Seq2[domain.Row, error], columns []string) (int, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", pdfFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := pageWidth - left - right
	if len(columns) > 0 {
		colWidth /= float64(len(columns))
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(colWidth, pdfLineHeight, fit(pdf, tr(c), colWidth), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}
	pdf.SetHeaderFunc(header)
	pdf.AddPage()

	n := 0
	for row, err := range rows {
		if err != nil {
			return n, err
		}
		for _, v := range record(row, columns) {
			pdf.CellFormat(colWidth, pdfLineHeight, fit(pdf, tr(formatValue(v)), colWidth), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		n++
	}

	if err := pdf.Output(w); err != nil {
		return n, err
	}
	return n, nil
}

// fit shortens s until it fits in a cell of the given width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	const ellipsis = "..."
	limit := width - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+ellipsis) > limit {
		r = r[:len(r)-1]
	}
	return string(r) + ellipsis
}
