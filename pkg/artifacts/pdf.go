package artifacts

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/go-pdf/fpdf"
)

const (
	reportTitle     = "Multi-Agent Data Assistant Report"
	reportTableRows = 50
	cellPadding     = 6.0
	ellipsis        = "..."
)

// ReportInput is what the PDF summarizes.
type ReportInput struct {
	Question  string
	Rows      []models.Row
	ChartPath string
}

// NumericSummary is the total and average of a numeric column over the sample.
type NumericSummary struct {
	Column  string
	Total   float64
	Average float64
}

// RenderReport writes report-<ts>.pdf.
func (w *Writer) RenderReport(input ReportInput) (string, error) {
	path, err := w.nextPath("report", ".pdf")
	if err != nil {
		return "", err
	}

	generated := w.now().UTC().Format(time.RFC3339)

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, reportTitle, "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 6, "Generated: "+generated, "", 1, "", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	epw := pageWidth - left - right

	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(epw, 7, tr("Question: "+input.Question), "", "", false)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Rows: %d", len(input.Rows)), "", 1, "", false, 0, "")

	if input.ChartPath != "" && fileExists(input.ChartPath) {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, "Chart", "", 1, "", false, 0, "")
		pdf.ImageOptions(input.ChartPath, -1, 0, epw*0.9, 0, true, fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, 0, "")
		pdf.Ln(2)
	}

	if len(input.Rows) == 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(epw, 6, "No data rows to display.", "", "", false)
	} else {
		sample := input.Rows[:min(len(input.Rows), reportTableRows)]
		columns := columnNames(sample)

		writeTable(pdf, tr, epw, columns, sample)
		writeSummary(pdf, NumericSummaries(columns, sample))
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}

	return path, nil
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, epw float64, columns []string, rows []models.Row) {
	pdf.SetFont("Helvetica", "", 10)

	widths := make([]float64, len(columns))
	total := 0.0

	for i, column := range columns {
		widest := pdf.GetStringWidth(tr(column))
		for _, row := range rows {
			widest = max(widest, pdf.GetStringWidth(tr(cellText(row[column]))))
		}

		widths[i] = widest + cellPadding
		total += widths[i]
	}

	if total <= 0 {
		total = 1
	}

	for i := range widths {
		widths[i] *= epw / total
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)

	for i, column := range columns {
		pdf.CellFormat(widths[i], 8, fitText(pdf, tr(strings.ToUpper(column)), widths[i]-2), "1", 0, "C", true, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)

	for r, row := range rows {
		if r%2 == 1 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for i, column := range columns {
			pdf.CellFormat(widths[i], 7, fitText(pdf, tr(cellText(row[column])), widths[i]-2), "1", 0, "L", true, 0, "")
		}

		pdf.Ln(7)
	}
}

func writeSummary(pdf *fpdf.Fpdf, summaries []NumericSummary) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	if len(summaries) == 0 {
		pdf.CellFormat(0, 6, "No numeric columns detected.", "", 1, "", false, 0, "")

		return
	}

	for _, summary := range summaries {
		pdf.CellFormat(0, 6, FormatSummary(summary), "", 1, "", false, 0, "")
	}
}

// fitText truncates text with an ellipsis until it fits width.
func fitText(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+ellipsis) > width {
		runes = runes[:len(runes)-1]
	}

	if len(runes) == 0 {
		return ""
	}

	return string(runes) + ellipsis
}

// NumericSummaries returns a summary for every column whose non-empty sample
// values all parse as numbers. Empty values count as zero.
func NumericSummaries(columns []string, rows []models.Row) []NumericSummary {
	summaries := make([]NumericSummary, 0)

	for _, column := range columns {
		values := make([]float64, 0, len(rows))
		numeric := true

		for _, row := range rows {
			value, ok, empty := numberOf(row[column])
			if empty {
				values = append(values, 0)

				continue
			}

			if !ok {
				numeric = false

				break
			}

			values = append(values, value)
		}

		if !numeric {
			continue
		}

		total := 0.0
		for _, value := range values {
			total += value
		}

		average := 0.0
		if len(values) > 0 {
			average = total / float64(len(values))
		}

		summaries = append(summaries, NumericSummary{Column: column, Total: total, Average: average})
	}

	return summaries
}

func FormatSummary(summary NumericSummary) string {
	return fmt.Sprintf("%s: total=%.2f, avg=%.2f", summary.Column, summary.Total, summary.Average)
}

func numberOf(value any) (number float64, ok bool, empty bool) {
	switch v := value.(type) {
	case nil:
		return 0, false, true
	case int:
		return float64(v), true, false
	case int32:
		return float64(v), true, false
	case int64:
		return float64(v), true, false
	case float32:
		return float64(v), true, false
	case float64:
		return v, true, false
	case bool:
		if v {
			return 1, true, false
		}

		return 0, true, false
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, false, true
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil, false
	default:
		f, err := strconv.ParseFloat(fmt.Sprint(v), 64)

		return f, err == nil, false
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
