// Package ingest is the pipeline boundary: it gates files by extension,
// decodes their bytes to text, selects the parsing path and applies the
// structured-to-heuristic fallback.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/detect"
	"github.com/baukit/gaebconv/pkg/gaebxml"
	"github.com/baukit/gaebconv/pkg/heuristic"
	"github.com/baukit/gaebconv/pkg/metrics"
)

// ErrUnsupportedExtension marks files rejected before any parsing.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// AcceptedExtensions is the fixed set of supported dialect extensions.
var AcceptedExtensions = map[string]bool{
	".x83": true,
	".d83": true,
	".p83": true,
	".txt": true,
}

// IsSupported reports whether the file name carries an accepted extension.
func IsSupported(fileName string) bool {
	return AcceptedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// Pipeline runs the two-stage parse: classify, parse, fall back.
type Pipeline struct {
	log        *zap.Logger
	structured *gaebxml.Parser
	lines      *heuristic.Parser
}

// NewPipeline creates a pipeline. A nil logger disables logging.
func NewPipeline(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		log:        log,
		structured: gaebxml.NewParser(log),
		lines:      heuristic.NewParser(log),
	}
}

// Parse converts raw file text into a ParsedDocument. It is total: a
// structured parse failure falls back to the heuristic path wholesale, and
// the heuristic path degrades to few or zero positions instead of erroring.
func (p *Pipeline) Parse(text, fileName string) *boq.ParsedDocument {
	var doc *boq.ParsedDocument

	if detect.Classify(text) == detect.PathStructured {
		parsed, err := p.structured.Parse(text, fileName)
		if err != nil {
			p.log.Info("structured parse failed, falling back to heuristic path",
				zap.String("file", fileName),
				zap.Error(err))
			metrics.ParseFallbacks.Inc()
		} else {
			doc = parsed
		}
	}

	if doc == nil {
		doc = p.lines.Parse(text, fileName)
	}

	metrics.DocumentsParsed.WithLabelValues(string(doc.Header.DetectedFormat)).Inc()
	return doc
}

// ParseFile reads, decodes and parses one file. Extension and read/decode
// failures are the only terminal errors; they affect this file only.
func (p *Pipeline) ParseFile(path string) (*boq.ParsedDocument, error) {
	name := filepath.Base(path)
	if !IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(name))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return p.Parse(text, name), nil
}

// DecodeText converts file bytes to a string. Valid UTF-8 passes through;
// anything else is treated as Latin-1, the usual encoding of legacy GAEB90
// and GAEB2000 exports.
func DecodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("latin-1 decode: %w", err)
	}
	return string(decoded), nil
}
