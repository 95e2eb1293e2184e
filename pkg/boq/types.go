// Package boq defines the shared hierarchy model for parsed
// bill-of-quantities documents. Both parsing paths populate these types and
// the export serializer consumes them.
package boq

import (
	"fmt"
	"time"
)

// NodeType classifies a row of the bill of quantities. The set is closed:
// classification and rendering sites switch exhaustively over it.
type NodeType string

const (
	// NodeTitle marks a category/section header grouping items beneath it.
	NodeTitle NodeType = "title"

	// NodePosition marks a priced/quantified line item.
	NodePosition NodeType = "position"

	// NodeText marks an unstructured narrative line.
	NodeText NodeType = "text"

	// NodeCalculation marks a summary/subtotal line.
	NodeCalculation NodeType = "calculation"
)

// String returns the string representation of a NodeType.
func (t NodeType) String() string {
	return string(t)
}

// DisplayName returns the human-readable label used in exports.
func (t NodeType) DisplayName() string {
	switch t {
	case NodeTitle:
		return "Titel"
	case NodePosition:
		return "Position"
	case NodeText:
		return "Text"
	case NodeCalculation:
		return "Berechnung"
	default:
		return "Unbekannt"
	}
}

// Dialect labels the detected source format of a document. The label is
// display/metadata only; it never drives parsing decisions after dispatch.
type Dialect string

const (
	DialectGAEBXML  Dialect = "GAEB XML"
	DialectGAEB90   Dialect = "GAEB90"
	DialectGAEB2000 Dialect = "GAEB2000"
	DialectUnknown  Dialect = "Unknown"
)

// DocumentHeader holds optional descriptive metadata about one source
// document. Nil fields mean the value was absent in the source, which is
// distinct from an empty string.
type DocumentHeader struct {
	Version        *string `json:"version,omitempty"`
	ProjectName    *string `json:"project_name,omitempty"`
	Description    *string `json:"description,omitempty"`
	Date           *string `json:"date,omitempty"`
	DetectedFormat Dialect `json:"detected_format,omitempty"`
}

// PositionNode is one row of the bill of quantities.
type PositionNode struct {
	// ID is unique within a document, taken from the source or synthesized
	// as pos_<ordinal> / item_<ordinal>.
	ID string `json:"id"`

	// PositionNumber is the human-readable hierarchical label, e.g. "1.2".
	PositionNumber string `json:"position_number,omitempty"`

	// Title is never empty; a placeholder is substituted when extraction
	// yields nothing usable.
	Title string `json:"title"`

	// Description is longer text, nil when the source had none.
	Description *string `json:"description,omitempty"`

	// Unit is the measurement unit token. A currency symbol or code is
	// never stored here.
	Unit string `json:"unit,omitempty"`

	Quantity   *float64 `json:"quantity,omitempty"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`

	// Level is the hierarchy depth: categories 0, items 1 or deeper.
	Level int `json:"level"`

	// Parent references the owning category node by id, empty for roots.
	Parent string `json:"parent,omitempty"`

	Type NodeType `json:"type"`
}

// ParsedDocument is the unit of parser output. It is created once per file
// and immutable thereafter.
type ParsedDocument struct {
	Header    DocumentHeader `json:"header"`
	Positions []PositionNode `json:"positions"`

	// RawText retains the original input verbatim for diagnostic fallback
	// display.
	RawText string `json:"raw_text"`

	FileName    string    `json:"file_name"`
	ProcessedAt time.Time `json:"processed_at"`

	// TotalPositions always equals len(Positions); set at construction.
	TotalPositions int `json:"total_positions"`
}

// NewParsedDocument constructs a ParsedDocument and establishes the
// TotalPositions invariant.
func NewParsedDocument(header DocumentHeader, positions []PositionNode, rawText, fileName string) *ParsedDocument {
	if positions == nil {
		positions = make([]PositionNode, 0)
	}
	return &ParsedDocument{
		Header:         header,
		Positions:      positions,
		RawText:        rawText,
		FileName:       fileName,
		ProcessedAt:    time.Now(),
		TotalPositions: len(positions),
	}
}

// CountByType returns the number of nodes with the given type.
func (d *ParsedDocument) CountByType(t NodeType) int {
	n := 0
	for _, p := range d.Positions {
		if p.Type == t {
			n++
		}
	}
	return n
}

// Summary returns a one-line description for CLI output.
func (d *ParsedDocument) Summary() string {
	format := d.Header.DetectedFormat
	if format == "" {
		format = DialectUnknown
	}
	return fmt.Sprintf("%s: %s, %d Kategorien, %d Positionen, %d Zeilen gesamt",
		d.FileName, format, d.CountByType(NodeTitle), d.CountByType(NodePosition), d.TotalPositions)
}

// StringPtr returns a pointer to s. Convenience for optional fields.
func StringPtr(s string) *string {
	return &s
}

// FloatPtr returns a pointer to f. Convenience for optional fields.
func FloatPtr(f float64) *float64 {
	return &f
}
