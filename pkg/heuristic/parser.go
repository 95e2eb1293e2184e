// Package heuristic parses free-form bill-of-quantities text line by line.
// The input family has no reliable column structure, so positions are
// recognized and their fields extracted through layered regex heuristics
// with explicit first-match-wins ordering. Precision is intentionally loose:
// false positives are tolerated, false negatives are not.
package heuristic

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/detect"
	"github.com/baukit/gaebconv/pkg/locale"
)

// parseMode is the two-state scanner mode. The transition from header to
// positions is monotonic: once a line looks like a position the parser never
// returns to header mode.
type parseMode int

const (
	modeHeader parseMode = iota
	modePositions
)

// line pairs a raw input line with its trimmed form. The raw form is kept
// for indentation-based level inference.
type line struct {
	raw     string
	trimmed string
}

// Parser is the heuristic line parser. It is stateless across documents.
type Parser struct {
	log  *zap.Logger
	fmtr *locale.Formatter
}

// NewParser creates a heuristic parser. A nil logger disables logging.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log, fmtr: locale.New()}
}

// Parse processes raw text into a ParsedDocument. It never fails:
// unrecognizable content degrades to a document with few or zero positions.
func (p *Parser) Parse(text, fileName string) *boq.ParsedDocument {
	lines := splitLines(text)

	header := boq.DocumentHeader{DetectedFormat: detect.Label(text, fileName)}
	nodes := make([]boq.PositionNode, 0)

	mode := modeHeader
	parent := ""

	for i, ln := range lines {
		if mode == modeHeader {
			if p.looksLikePosition(ln.trimmed) {
				mode = modePositions
			} else {
				p.parseHeaderLine(ln.trimmed, &header)
				continue
			}
		}

		if !p.looksLikePosition(ln.trimmed) {
			continue
		}

		node := p.extractNode(lines, i, len(nodes)+1)
		if node == nil {
			continue
		}

		if node.Type == boq.NodeTitle {
			parent = node.ID
		} else {
			node.Parent = parent
		}
		nodes = append(nodes, *node)
	}

	return boq.NewParsedDocument(header, nodes, text, fileName)
}

// splitLines returns the non-empty trimmed lines of the input.
func splitLines(text string) []line {
	var out []line
	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		out = append(out, line{raw: raw, trimmed: trimmed})
	}
	return out
}

// parseHeaderLine scans a header-mode line for keyword markers. The value is
// everything after the first colon, or the whole line if there is no colon.
// Assignment is plain overwrite, so a later duplicate keyword line wins
// (known last-match-wins behavior).
func (p *Parser) parseHeaderLine(trimmed string, header *boq.DocumentHeader) {
	lower := strings.ToLower(trimmed)

	value := trimmed
	if idx := strings.Index(trimmed, ":"); idx >= 0 {
		value = strings.TrimSpace(trimmed[idx+1:])
	}

	switch {
	case strings.Contains(lower, "projekt") || strings.Contains(lower, "project"):
		header.ProjectName = boq.StringPtr(value)
	case strings.Contains(lower, "version"):
		header.Version = boq.StringPtr(value)
	case strings.Contains(lower, "datum") || strings.Contains(lower, "date"):
		header.Date = boq.StringPtr(value)
	case strings.Contains(lower, "beschreibung") || strings.Contains(lower, "description"):
		header.Description = boq.StringPtr(value)
	}
}

// looksLikePosition reports whether a trimmed line qualifies as a position
// candidate. The patterns form a union: any single match suffices.
func (p *Parser) looksLikePosition(trimmed string) bool {
	if len([]rune(trimmed)) < 3 {
		return false
	}
	if headerKeywords.MatchString(trimmed) {
		return false
	}

	switch {
	case leadingPosNum.MatchString(trimmed):
		return true
	case leadingLetterNum.MatchString(trimmed):
		return true
	case unitToken.MatchString(trimmed):
		return true
	case extractCurrency(trimmed) != nil:
		return true
	case leadingIntUpper.MatchString(trimmed):
		return true
	case numberUnit.MatchString(trimmed):
		return true
	case domainKeywords.MatchString(trimmed):
		return true
	}
	return false
}

// extractNode builds a PositionNode from the candidate line at index i.
// Extraction failures are contained: the line is logged and skipped, never
// aborting the document.
func (p *Parser) extractNode(lines []line, i, ordinal int) (node *boq.PositionNode) {
	ln := lines[i]

	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("skipping line after extraction failure",
				zap.Int("line", i+1),
				zap.Any("cause", r))
			node = nil
		}
	}()

	posNum := extractPositionNumber(ln.trimmed)
	currency := p.extractCurrencyValue(ln.trimmed)
	numbers := p.extractNumbers(ln.trimmed, posNum)
	unit := extractUnit(ln.trimmed)

	nodeType := classify(ln.trimmed, posNum, currency != nil, unit)

	node = &boq.PositionNode{
		ID:             idFor(ordinal),
		PositionNumber: posNum,
		Title:          p.deriveTitle(ln.trimmed, posNum, ordinal),
		Unit:           unit,
		Level:          level(ln.raw, posNum),
		Type:           nodeType,
	}

	if desc := lookaheadDescription(p, lines, i); desc != "" {
		node.Description = boq.StringPtr(desc)
	}

	applyAmounts(node, numbers, currency)
	return node
}

// extractPositionNumber tries the three ordered position-number patterns and
// returns the first match, or "".
func extractPositionNumber(trimmed string) string {
	for _, pat := range posNumPatterns {
		if m := pat.FindStringSubmatch(trimmed); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractCurrency returns the raw digits of the first matching currency
// pattern, or nil. The four patterns are tried in fixed order.
func extractCurrency(trimmed string) []string {
	for _, pat := range currencyPatterns {
		if m := pat.FindStringSubmatch(trimmed); m != nil {
			return m
		}
	}
	return nil
}

// extractCurrencyValue parses the currency amount of the line, or nil.
func (p *Parser) extractCurrencyValue(trimmed string) *float64 {
	m := extractCurrency(trimmed)
	if m == nil {
		return nil
	}
	v, err := p.fmtr.ParseDecimal(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// extractNumbers returns the plain numbers of a line in order. The position
// number prefix and currency substrings are removed first; decimal matching
// runs before the bare-integer fallback, and the two are never merged.
func (p *Parser) extractNumbers(trimmed, posNum string) []float64 {
	s := trimmed
	if posNum != "" {
		s = strings.TrimPrefix(s, posNum)
	}
	for _, pat := range currencyPatterns {
		s = pat.ReplaceAllString(s, " ")
	}

	matches := decimalNumber.FindAllString(s, -1)
	if len(matches) == 0 {
		matches = integerNumber.FindAllString(s, -1)
	}

	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		if v, err := p.fmtr.ParseDecimal(m); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// extractUnit returns the leftmost unit-vocabulary token of the line. A
// token that is itself a currency symbol or code is never returned.
func extractUnit(trimmed string) string {
	m := unitToken.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	tok := m[1]
	if currencyTokens[strings.ToLower(tok)] {
		return ""
	}
	return tok
}

// classify determines the node type. The rules are evaluated in this exact
// priority order with first-match-wins semantics.
func classify(trimmed, posNum string, hasCurrency bool, unit string) boq.NodeType {
	switch {
	case titleLine.MatchString(trimmed):
		return boq.NodeTitle
	case posNum == "" && len([]rune(trimmed)) > 80 && !hasCurrency:
		return boq.NodeText
	case hasCurrency || unit != "":
		return boq.NodePosition
	case summaryKeywords.MatchString(trimmed):
		return boq.NodeCalculation
	default:
		return boq.NodePosition
	}
}

// deriveTitle strips the position number, currency amounts and number+unit
// pairs from the line and collapses whitespace. Too-short results fall back
// to the line without its bare numeric prefix, then to a placeholder.
func (p *Parser) deriveTitle(trimmed, posNum string, ordinal int) string {
	s := trimmed
	if posNum != "" {
		s = strings.TrimPrefix(s, posNum)
	}
	for _, pat := range currencyPatterns {
		s = pat.ReplaceAllString(s, " ")
	}
	s = numberUnit.ReplaceAllStringFunc(s, func(match string) string {
		m := numberUnit.FindStringSubmatch(match)
		if m != nil && currencyTokens[strings.ToLower(m[1])] {
			return match
		}
		return " "
	})
	s = collapseWhitespace(s)

	if len([]rune(s)) >= 3 {
		return s
	}

	fallback := collapseWhitespace(leadingBareInt.ReplaceAllString(trimmed, ""))
	if fallback != "" {
		return fallback
	}
	return positionPlaceholder(ordinal)
}

// level infers hierarchy depth from indentation and the dot count of the
// position number. The two signals combine by maximum, never replacement.
func level(raw, posNum string) int {
	indent := 0
	for _, r := range raw {
		if r == ' ' || r == '\t' {
			indent++
			continue
		}
		break
	}

	lvl := indent / 4
	if dots := strings.Count(posNum, "."); dots > lvl {
		lvl = dots
	}
	return lvl
}

// lookaheadDescription scans up to the next two lines for a description: the
// first that does not itself look like a position and has more than 10
// characters. The scanned lines are not consumed; they remain candidates for
// later classification, which can duplicate content by design.
func lookaheadDescription(p *Parser, lines []line, i int) string {
	for j := i + 1; j <= i+2 && j < len(lines); j++ {
		next := lines[j].trimmed
		if p.looksLikePosition(next) {
			continue
		}
		if len([]rune(next)) > 10 {
			return next
		}
	}
	return ""
}

// applyAmounts derives quantity, unit price and total price from the plain
// numbers and the currency amount. The cases are evaluated in this exact
// priority; note the asymmetry between the two-number cases: with a currency
// amount the second number is taken as the total verbatim, without one the
// maximum of the remaining numbers is the total and the unit price is
// back-computed.
func applyAmounts(node *boq.PositionNode, numbers []float64, currency *float64) {
	switch {
	case len(numbers) == 1 && currency != nil:
		node.Quantity = boq.FloatPtr(numbers[0])
		node.UnitPrice = currency
		node.TotalPrice = boq.FloatPtr(numbers[0] * *currency)

	case len(numbers) >= 2 && currency != nil:
		node.Quantity = boq.FloatPtr(numbers[0])
		node.UnitPrice = currency
		node.TotalPrice = boq.FloatPtr(numbers[1])

	case len(numbers) >= 2:
		node.Quantity = boq.FloatPtr(numbers[0])
		rest := numbers[1]
		for _, n := range numbers[2:] {
			if n > rest {
				rest = n
			}
		}
		if rest > 1 {
			node.TotalPrice = boq.FloatPtr(rest)
			if numbers[0] != 0 {
				node.UnitPrice = boq.FloatPtr(rest / numbers[0])
			}
		}

	case len(numbers) == 1:
		node.Quantity = boq.FloatPtr(numbers[0])
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func idFor(ordinal int) string {
	return "pos_" + strconv.Itoa(ordinal)
}

func positionPlaceholder(ordinal int) string {
	return "Position " + strconv.Itoa(ordinal)
}
