// Package detect decides which parsing path handles a raw input and labels
// the sub-dialect for display purposes.
package detect

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/baukit/gaebconv/pkg/boq"
)

// Path selects one of the two parsing engines.
type Path string

const (
	// PathStructured routes to the structured-markup (XML) parser.
	PathStructured Path = "structured"

	// PathHeuristic routes to the heuristic line parser.
	PathHeuristic Path = "heuristic"
)

// gaeb90RecordLine matches the two-digit record codes that open GAEB90
// exchange lines ("00", "01", "11", ...).
var gaeb90RecordLine = regexp.MustCompile(`^\d{2}[A-Z0-9 ]`)

// Classify selects the parsing path for raw file text. The function is pure
// and total: unrecognized content always falls through to the heuristic
// path, which degrades gracefully instead of erroring.
func Classify(text string) Path {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<?xml") || strings.Contains(trimmed, "<GAEB") {
		return PathStructured
	}
	return PathHeuristic
}

// Label names the sub-dialect of the input for display and header metadata.
// It combines extension and content sniffing and never influences which
// parser runs.
func Label(text, fileName string) boq.Dialect {
	if Classify(text) == PathStructured {
		return boq.DialectGAEBXML
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".d83":
		return boq.DialectGAEB90
	case ".p83":
		return boq.DialectGAEB2000
	}

	if strings.Contains(text, "GAEB2000") {
		return boq.DialectGAEB2000
	}

	// GAEB90 is line oriented with leading record codes; a handful of
	// matching lines is enough evidence for a display label.
	recordLines := 0
	for _, line := range strings.Split(text, "\n") {
		if gaeb90RecordLine.MatchString(line) {
			recordLines++
			if recordLines >= 3 {
				return boq.DialectGAEB90
			}
		}
	}

	return boq.DialectUnknown
}
