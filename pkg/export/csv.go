package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/metrics"
)

// csvDelimiter separates CSV fields. Semicolon matches the German Excel
// convention the workbook targets.
const csvDelimiter = ";"

// WriteCSV writes the flat delimited alternative: one table per document,
// preceded by a small text banner and separated by a blank line. Fields are
// position number, node type display name, quoted title, quoted description,
// quantity and unit; double quotes inside quoted fields are doubled.
func (e *Exporter) WriteCSV(w io.Writer, docs []*boq.ParsedDocument, opts Options) error {
	if err := e.writeCSV(w, docs, opts); err != nil {
		metrics.ExportErrors.WithLabelValues("csv").Inc()
		return err
	}
	metrics.ExportsTotal.WithLabelValues("csv").Inc()
	return nil
}

func (e *Exporter) writeCSV(w io.Writer, docs []*boq.ParsedDocument, opts Options) error {
	for i, doc := range docs {
		if i > 0 {
			if _, err := fmt.Fprint(w, "\n"); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
		}
		if err := e.writeDocumentCSV(w, doc, opts); err != nil {
			return fmt.Errorf("document %s: %w", doc.FileName, err)
		}
	}
	return nil
}

func (e *Exporter) writeDocumentCSV(w io.Writer, doc *boq.ParsedDocument, opts Options) error {
	format := string(doc.Header.DetectedFormat)
	if format == "" {
		format = defaultDialect
	}
	project := ""
	if doc.Header.ProjectName != nil {
		project = *doc.Header.ProjectName
	}

	if _, err := fmt.Fprintf(w, "# %s | %s | %s\n", doc.FileName, format, project); err != nil {
		return err
	}

	header := strings.Join([]string{"Pos", "Typ", "Titel", "Beschreibung", "Menge", "Einheit"}, csvDelimiter)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, node := range doc.Positions {
		description := ""
		if opts.IncludeDescription && node.Description != nil {
			description = *node.Description
		}
		quantity := ""
		if node.Quantity != nil {
			quantity = e.fmtr.FormatQuantity(*node.Quantity)
		}

		fields := []string{
			node.PositionNumber,
			node.Type.DisplayName(),
			quoteCSV(node.Title),
			quoteCSV(description),
			quantity,
			node.Unit,
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, csvDelimiter)); err != nil {
			return err
		}
	}
	return nil
}

// quoteCSV wraps a value in double quotes, doubling inner quotes.
func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
