// Package export serializes parsed documents into the tabular artifacts:
// a styled multi-sheet XLSX production-tracking workbook and a flat CSV
// alternative.
package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/locale"
	"github.com/baukit/gaebconv/pkg/metrics"
)

// Options configures an export run.
type Options struct {
	// IncludeDescription adds node descriptions to the output: the CSV
	// description field and the workbook remarks column.
	IncludeDescription bool

	// Stem is the output file-name stem; the timestamp and extension are
	// appended by ExportFileName.
	Stem string
}

// summarySheet is the fixed name of the aggregate sheet.
const summarySheet = "Übersicht"

// sheetNameLimit is the host format's sheet-name length limit.
const sheetNameLimit = 31

// defaultDialect labels documents whose header carries no detected format.
const defaultDialect = "GAEB"

// columns of the per-document production-tracking template. The two blank
// workshop columns, the separator and the four blank procurement columns are
// filled manually outside the system.
var templateColumns = []string{
	"Pos.",
	"Produkt",
	"Menge",
	"Gefertigt",
	"Fertig am",
	"",
	"Bestellt am",
	"Lieferant",
	"Liefertermin",
	"Geliefert",
	"Bemerkungen",
}

// templateWidths are the fixed column widths of the template; they are not
// computed from content.
var templateWidths = []float64{10, 46, 9, 11, 11, 3, 12, 18, 13, 10, 28}

var unsafeSheetChars = regexp.MustCompile(`[\[\]:*?/\\]`)

// Exporter builds export artifacts from parsed documents.
type Exporter struct {
	log  *zap.Logger
	fmtr *locale.Formatter
}

// NewExporter creates an exporter. A nil logger disables logging.
func NewExporter(log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{log: log, fmtr: locale.New()}
}

// WriteWorkbook lays the documents out as a summary sheet plus one
// production-tracking sheet per document. The returned file has not been
// saved; callers decide the destination.
func (e *Exporter) WriteWorkbook(docs []*boq.ParsedDocument, opts Options) (*excelize.File, error) {
	f, err := e.buildWorkbook(docs, opts)
	if err != nil {
		metrics.ExportErrors.WithLabelValues("xlsx").Inc()
		return nil, err
	}
	metrics.ExportsTotal.WithLabelValues("xlsx").Inc()
	return f, nil
}

func (e *Exporter) buildWorkbook(docs []*boq.ParsedDocument, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}

	if err := e.writeSummary(f, docs); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}

	for i, doc := range docs {
		name := SheetName(doc.FileName, i+1, len(docs))
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		if err := e.writeDocumentSheet(f, name, doc, opts); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// writeSummary emits one row per document plus an aggregate totals row when
// more than one document is exported.
func (e *Exporter) writeSummary(f *excelize.File, docs []*boq.ParsedDocument) error {
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header := []interface{}{"Datei", "Format", "Kategorien", "Positionen", "Zeilen gesamt", "Verarbeitet"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "F1", headerStyle); err != nil {
		return err
	}

	var sumTitles, sumPositions, sumTotal int
	for i, doc := range docs {
		format := string(doc.Header.DetectedFormat)
		if format == "" {
			format = defaultDialect
		}
		titles := doc.CountByType(boq.NodeTitle)
		positions := doc.CountByType(boq.NodePosition)
		sumTitles += titles
		sumPositions += positions
		sumTotal += doc.TotalPositions

		row := []interface{}{
			doc.FileName,
			format,
			titles,
			positions,
			doc.TotalPositions,
			e.fmtr.FormatTimestamp(doc.ProcessedAt),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if len(docs) > 1 {
		row := []interface{}{"Gesamt", "", sumTitles, sumPositions, sumTotal, ""}
		cell := fmt.Sprintf("A%d", len(docs)+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, cell, fmt.Sprintf("F%d", len(docs)+2), headerStyle); err != nil {
			return err
		}
	}

	widths := []float64{32, 12, 11, 11, 13, 18}
	for i, w := range widths {
		col := string(rune('A' + i))
		if err := f.SetColWidth(summarySheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// writeDocumentSheet lays out the two-zone production/procurement tracking
// template: project banner, zone banner, column headers, then one row per
// node in document order. Quantity is populated only for position nodes;
// the manual-tracking columns stay blank. Title rows get bold colored
// emphasis across the whole row.
func (e *Exporter) writeDocumentSheet(f *excelize.File, sheet string, doc *boq.ParsedDocument, opts Options) error {
	bannerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 13},
	})
	if err != nil {
		return err
	}
	zoneStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
	})
	if err != nil {
		return err
	}
	titleRowStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "1F4E78"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return err
	}

	project := doc.FileName
	if doc.Header.ProjectName != nil && *doc.Header.ProjectName != "" {
		project = *doc.Header.ProjectName
	}
	if err := f.SetCellValue(sheet, "A1", project); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "K1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "K1", bannerStyle); err != nil {
		return err
	}

	// Zone banner: workshop tracking on the left, procurement on the right.
	if err := f.SetCellValue(sheet, "D2", "Werkstatt"); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "D2", "E2"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "G2", "Beschaffung"); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "G2", "J2"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "D2", "J2", zoneStyle); err != nil {
		return err
	}

	headerRow := make([]interface{}, len(templateColumns))
	for i, c := range templateColumns {
		headerRow[i] = c
	}
	if err := f.SetSheetRow(sheet, "A3", &headerRow); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A3", "K3", headerStyle); err != nil {
		return err
	}

	for i, node := range doc.Positions {
		rowNum := i + 4

		quantity := ""
		if node.Type == boq.NodePosition && node.Quantity != nil {
			quantity = e.fmtr.FormatQuantity(*node.Quantity)
		}
		remarks := ""
		if opts.IncludeDescription && node.Description != nil {
			remarks = *node.Description
		}

		row := []interface{}{
			node.PositionNumber,
			node.Title,
			quantity,
			"", "", // workshop tracking, filled manually
			"",
			"", "", "", "", // procurement tracking, filled manually
			remarks,
		}
		cell := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		if node.Type == boq.NodeTitle {
			if err := f.SetCellStyle(sheet, cell, fmt.Sprintf("K%d", rowNum), titleRowStyle); err != nil {
				return err
			}
		}
	}

	for i, w := range templateWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// SheetName sanitizes a file name for use as a sheet name: path-unsafe
// characters are replaced, the result is truncated to the host limit, and
// multi-document exports are prefixed with the 1-based file ordinal so names
// stay unique.
func SheetName(fileName string, ordinal, total int) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name = unsafeSheetChars.ReplaceAllString(name, "_")
	if name == "" {
		name = "Dokument"
	}
	if total > 1 {
		name = fmt.Sprintf("%d_%s", ordinal, name)
	}
	runes := []rune(name)
	if len(runes) > sheetNameLimit {
		name = string(runes[:sheetNameLimit])
	}
	return name
}

// ExportFileName builds the collision-safe output name
// <stem>_<timestamp>.<ext>.
func ExportFileName(stem, ext string, now time.Time) string {
	if stem == "" {
		stem = "produktionsliste"
	}
	return fmt.Sprintf("%s_%s.%s", stem, locale.New().FileTimestamp(now), ext)
}
