package reports

import (
	"bytes"

	"github.com/jung-kurt/gofpdf"

	"github.com/printops/usagehub/internal/usage"
)

var pdfColumns = []string{
	"Mono", "Color", "Blank", "Total", "PDF", "Copy", "Excel", "PPT",
	"Word", "Simplex", "Duplex", "Other", "Print",
}

// ExportPDF renders the per-user totals of an aggregation as a landscape A4
// table. Like the CSV exporter it contains no aggregation logic of its own.
func ExportPDF(reportName string, summary *usage.Summary) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, reportName)
	pdf.Ln(8)

	if label := usage.PeriodLabel(summary.RangeStart, summary.RangeEnd); label != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 6, label)
		pdf.Ln(8)
	} else {
		pdf.Ln(4)
	}

	const userWidth = 50.0
	const countWidth = 17.0

	writeHeaderRow := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(userWidth, 6, "User", "1", 0, "L", true, 0, "")
		for _, col := range pdfColumns {
			pdf.CellFormat(countWidth, 6, col, "1", 0, "R", true, 0, "")
		}
		pdf.Ln(-1)
	}

	writeTotalsRow := func(name string, t usage.Totals, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 8)
		pdf.CellFormat(userWidth, 5.5, name, "1", 0, "L", false, 0, "")
		for _, v := range []int64{
			t.Mono, t.Color, t.Blank, t.Total, t.AdobePDF, t.Copy,
			t.MSExcel, t.MSPowerPoint, t.MSWord, t.Simplex, t.Duplex,
			t.OtherApplication, t.Print,
		} {
			pdf.CellFormat(countWidth, 5.5, formatCount(v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	writeHeaderRow()

	var grand usage.Totals
	for _, name := range sortedUserKeys(summary.PerUser) {
		t := summary.PerUser[name].Totals
		grand.Add(t)
		writeTotalsRow(name, t, false)
	}
	writeTotalsRow("Total", grand, true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
