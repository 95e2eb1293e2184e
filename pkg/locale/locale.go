// Package locale centralizes locale-sensitive number and timestamp
// formatting. The parsers and the exporter share one Formatter so decimal
// and date conventions stay consistent across all outputs.
package locale

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Formatter applies German-locale conventions: decimal comma, DD.MM.YYYY
// dates.
type Formatter struct{}

// New returns a Formatter.
func New() *Formatter {
	return &Formatter{}
}

// ParseDecimal parses a decimal number that may use a comma or a dot as the
// decimal separator.
func (f *Formatter) ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a decimal number: %q", s)
	}
	return v, nil
}

// FormatNumber renders v with a decimal comma and two fraction digits.
func (f *Formatter) FormatNumber(v float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(v, 'f', 2, 64), ".", ",")
}

// FormatQuantity renders a quantity without trailing zero noise: integers as
// integers, fractions with up to three digits and a decimal comma.
func (f *Formatter) FormatQuantity(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return strings.ReplaceAll(s, ".", ",")
}

// FormatTimestamp renders a timestamp for display rows.
func (f *Formatter) FormatTimestamp(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FileTimestamp renders a timestamp safe for file names.
func (f *Formatter) FileTimestamp(t time.Time) string {
	return t.Format("2006-01-02_15-04-05")
}
