package cmd

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/hoangtm-lab/r2s-detect/internal/scan"
	consts "github.com/hoangtm-lab/r2s-detect/internal/shared/constants"
)

//go:embed templates/report.md
var reportTemplateFS embed.FS

var markdownReportTemplate = template.Must(
	template.New("report.md").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format(time.RFC3339) },
		"deref": func(b *bool) bool {
			return b != nil && *b
		},
	}).ParseFS(reportTemplateFS, "templates/report.md"),
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a saved scan result as markdown or PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if input == "" {
			return fmt.Errorf("--input is required")
		}
		format = strings.ToLower(format)
		if format != "md" && format != "pdf" {
			return fmt.Errorf("invalid format: %s (must be md or pdf)", format)
		}
		if output == "" {
			output = "report." + format
		}

		result, err := loadResult(input)
		if err != nil {
			return err
		}
		scan.SortFindingsForDisplay(result.Findings)

		switch format {
		case "md":
			var buf bytes.Buffer
			if err := markdownReportTemplate.Execute(&buf, result); err != nil {
				return fmt.Errorf("render markdown report: %w", err)
			}
			if err := os.WriteFile(output, buf.Bytes(), consts.DefaultFilePerm); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		case "pdf":
			pdfBytes, err := generatePDFReport(result)
			if err != nil {
				return fmt.Errorf("render PDF report: %w", err)
			}
			if err := os.WriteFile(output, pdfBytes, consts.DefaultFilePerm); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}

		fmt.Printf("%s %s\n", colorSuccess("Report generated:"), output)
		return nil
	},
}

func generatePDFReport(result *scan.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "r2s-detect scan report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		fmt.Sprintf("Target: %s", result.Target),
		fmt.Sprintf("Mode: %s", result.Mode),
		fmt.Sprintf("Status: %s", result.Status),
		fmt.Sprintf("Run ID: %s", result.RunID),
		fmt.Sprintf("Completed: %s", result.CompletedAt.Format(time.RFC3339)),
	} {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(result.Findings) == 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "No vulnerable packages detected.")
		pdf.Ln(8)
	} else {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Findings (%d)", len(result.Findings)))
		pdf.Ln(10)

		pdf.SetFont("Helvetica", "B", 10)
		widths := []float64{55, 25, 25, 28, 57}
		headers := []string{"Package", "Version", "Severity", "Source", "Location"}
		for i, h := range headers {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, f := range result.Findings {
			cells := []string{f.Package, f.Version, string(f.Severity), string(f.Source), f.Location.String()}
			for i, c := range cells {
				pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "Recommendation: upgrade react-server-dom-* packages to 19.0.1, 19.1.2, or 19.2.1.", "", "L", false)
	}

	if len(result.Diagnostics) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Diagnostics (%d)", len(result.Diagnostics)))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 9)
		for _, d := range result.Diagnostics {
			subject := d.File
			if subject == "" {
				subject = d.Probe
			}
			pdf.MultiCell(0, 5, fmt.Sprintf("%s: %s", subject, d.Message), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	reportCmd.Flags().StringP("input", "i", "", "scan result JSON file (from scan --output)")
	reportCmd.Flags().StringP("format", "f", "md", "report format: md or pdf")
	reportCmd.Flags().StringP("output", "o", "", "report output path (default report.<format>)")
}
