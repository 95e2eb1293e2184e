package heuristic

import "regexp"

// unitAlternation lists the fixed unit vocabulary, longest tokens first so
// leftmost-first matching picks "m²" over "m" and "stück" over "st". The
// currency abbreviations are part of the detection vocabulary but are never
// stored as a unit.
const unitAlternation = `m²|m³|m2|m3|mm|cm|km|kg|stück|stk|std|st|psch|eur|dm|h|t|l|m|€`

var (
	// Position number extraction, tried in order: dotted numeric,
	// letter-prefixed numeric, bare 2-3 digit code. First match wins.
	posNumPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(\d+(?:\.\d+)+)`),
		regexp.MustCompile(`^([A-Za-z]\d+(?:\.\d+)*)`),
		regexp.MustCompile(`^(\d{2,3})\b`),
	}

	// Currency amount extraction, tried in order; first match wins.
	currencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:€|EUR)`),
		regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*DM\b`),
		regexp.MustCompile(`€\s*(\d+(?:[.,]\d+)?)`),
		regexp.MustCompile(`\bEUR\s*(\d+(?:[.,]\d+)?)`),
	}

	// Plain number extraction. Decimal numbers are tried first; the bare
	// integer pattern is used only when no decimal matches, never merged.
	decimalNumber = regexp.MustCompile(`\d+[.,]\d+`)
	integerNumber = regexp.MustCompile(`\d+`)

	// unitToken finds the leftmost vocabulary token with non-letter
	// context on both sides.
	unitToken = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(` + unitAlternation + `)(?:[^\p{L}\d]|$)`)

	// numberUnit matches a number directly followed by a vocabulary token.
	numberUnit = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(` + unitAlternation + `)(?:[^\p{L}\d]|$)`)

	// Line-shape patterns for position detection and classification.
	leadingPosNum    = regexp.MustCompile(`^\d+(?:\.\d+)*[.:)]?\s+`)
	leadingLetterNum = regexp.MustCompile(`^[A-Za-z]\d+`)
	leadingIntUpper  = regexp.MustCompile(`^\d+\s+[A-ZÄÖÜ]{2,}`)
	titleLine        = regexp.MustCompile(`^\d+\s+[A-ZÄÖÜ][A-ZÄÖÜ\s\-/.]*$`)
	leadingBareInt   = regexp.MustCompile(`^\d+\s*`)

	// Vocabulary of trade/material keywords; any hit qualifies a line as a
	// position candidate.
	domainKeywords = regexp.MustCompile(`(?i)\b(beton|mauerwerk|stahl|holz|dämmung|estrich|putz|fliesen|maler|elektro|sanitär|heizung|trockenbau|abbruch|erdarbeiten|gerüst|fundament|fenster|türen|dach)\b`)

	// Summary/subtotal vocabulary for calculation lines.
	summaryKeywords = regexp.MustCompile(`(?i)\b(summe|zwischensumme|gesamtsumme|gesamt|total|netto|brutto|übertrag)\b`)

	// Header keywords exclude a line from position detection.
	headerKeywords = regexp.MustCompile(`(?i)\b(projekt|project|version|datum|date|beschreibung|description)\b`)
)

// currencyTokens are vocabulary entries that must never be stored as a unit.
var currencyTokens = map[string]bool{
	"€":   true,
	"eur": true,
	"dm":  true,
}
