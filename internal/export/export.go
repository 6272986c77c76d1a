// Package export writes subscription cost reports to CSV, JSON and PDF files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormats parses a comma-separated list such as "csv,pdf". Duplicates
// are dropped.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for part := range strings.SplitSeq(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		switch f {
		case FormatCSV, FormatJSON, FormatPDF:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, part)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnknownFormat)
	}
	return out, nil
}

// Exporter writes reports into a directory.
type Exporter struct {
	now func() time.Time
	dir string
}

// New creates an exporter writing to dir. An empty dir means the working
// directory.
func New(dir string) *Exporter {
	return &Exporter{dir: dir, now: time.Now}
}

// Export writes result in the given format and returns the absolute path.
func (e *Exporter) Export(result *models.SubscriptionCostResult, format Format) (string, error) {
	if result == nil {
		return "", errors.New("no cost data to export")
	}

	path, err := e.filename(result, format)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatCSV, FormatJSON:
		if err := writeFile(path, func(w io.Writer) error {
			if format == FormatCSV {
				return WriteCSV(w, result)
			}
			return WriteJSON(w, result)
		}); err != nil {
			return "", err
		}
	case FormatPDF:
		if err := e.writePDF(path, result); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	logger.Info("exported report", "subscription", result.SubscriptionID, "path", path)
	return filepath.Abs(path)
}

func writeFile(path string, fn func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := fn(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteCSV writes one row per resource group followed by the detailed
// entries.
func WriteCSV(w io.Writer, r *models.SubscriptionCostResult) error {
	writer := csv.NewWriter(w)

	rows := [][]string{
		{"Subscription", "Resource Group", "Cost", "Currency"},
	}
	for _, rg := range r.TopResourceGroups(0) {
		rows = append(rows, []string{reportName(r), rg.Name, money(rg.Cost), r.Currency})
	}
	rows = append(rows, []string{reportName(r), "TOTAL", money(r.TotalCost), r.Currency})

	if len(r.DetailedEntries) > 0 {
		rows = append(rows, nil, []string{"Date", "Resource Group", "Resource", "Type", "Amount", "Currency"})
		for _, e := range r.DetailedEntries {
			rows = append(rows, []string{e.Date, e.ResourceGroupName, e.ResourceID, e.EntryType, money(e.Amount), e.Currency})
		}
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("error writing CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the result as indented JSON.
func WriteJSON(w io.Writer, r *models.SubscriptionCostResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}

func (e *Exporter) writePDF(path string, r *models.SubscriptionCostResult) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFillColor(40, 40, 40)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  "+truncate(reportName(r), 80)), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(50, 50, 50)
	pdf.CellFormat(0, 8, tr("  Subscription ID: "+r.SubscriptionID), "", 1, "L", true, 0, "")
	pdf.Ln(10)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 8, title)
		pdf.Ln(7)
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(4)
	}

	section("Cost Summary")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(95, 12, tr(money(r.TotalCost)+" "+r.Currency), "", 0, "L", false, 0, "")
	if r.ProjectedCostCurrentMonth != nil {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(95, 12, tr("Projected this month: "+money(*r.ProjectedCostCurrentMonth)), "", 0, "L", false, 0, "")
	}
	pdf.Ln(14)

	if groups := r.TopResourceGroups(0); len(groups) > 0 {
		section("Cost By Resource Group")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(50, 50, 50)
		for _, rg := range groups {
			pdf.CellFormat(140, 6, tr(truncate(rg.Name, 70)), "", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, money(rg.Cost), "", 1, "R", false, 0, "")
		}
		pdf.Ln(8)
	}

	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	footer := fmt.Sprintf("Generated by cost-dashboard | %s", e.now().Format("2006-01-02"))
	pdf.CellFormat(0, 10, tr(footer), "", 0, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("error writing PDF file: %w", err)
	}
	return nil
}

func (e *Exporter) filename(r *models.SubscriptionCostResult, format Format) (string, error) {
	dir := e.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("error creating output directory %q: %w", dir, err)
	}
	base := sanitize(reportName(r))
	name := fmt.Sprintf("%s_%s.%s", base, e.now().Format("20060102_150405"), format)
	return filepath.Join(dir, name), nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(name string) string {
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return "report"
	}
	return name
}

func reportName(r *models.SubscriptionCostResult) string {
	if r.SubscriptionName != "" {
		return r.SubscriptionName
	}
	return r.SubscriptionID
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
