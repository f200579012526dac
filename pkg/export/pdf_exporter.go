package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfPrintableWidth = 190.0

// PDFExporter renders report tables as a single-table A4 document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws the title, a generation timestamp and the table grid.
// Columns share the printable width evenly.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 15, 10)
	doc.AddPage()

	if table.Title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 10, table.Title, "", 1, "C", false, 0, "")
	}
	if !table.GeneratedAt.IsZero() {
		doc.SetFont("Arial", "I", 8)
		stamp := "Generated " + table.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")
		doc.CellFormat(0, 6, stamp, "", 1, "C", false, 0, "")
	}
	doc.Ln(4)

	colWidth := pdfPrintableWidth / float64(len(table.Columns))

	doc.SetFont("Arial", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for _, col := range table.Columns {
		doc.CellFormat(colWidth, 8, col, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 9)
	for _, row := range table.Rows {
		for _, cell := range row {
			doc.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		doc.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := doc.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
