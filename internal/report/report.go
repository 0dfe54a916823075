package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Title heads every generated report.
const Title = "Cyber Law Report"

// Report is the content of a downloadable prediction report.
type Report struct {
	Section    string
	Offense    string
	Punishment string
	CaseType   string
	Procedure  string
}

// Fields returns the labeled values in display order.
func (r Report) Fields() [][2]string {
	return [][2]string{
		{"Section", r.Section},
		{"Offense", r.Offense},
		{"Punishment", r.Punishment},
		{"Case Type", r.CaseType},
		{"Procedure", r.Procedure},
	}
}

// Render writes r as an A4 PDF to w.
func Render(w io.Writer, r Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for _, field := range r.Fields() {
		pdf.MultiCell(0, 10, tr(fmt.Sprintf("%s: %s", field[0], strings.TrimSpace(field[1]))), "", "", false)
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
