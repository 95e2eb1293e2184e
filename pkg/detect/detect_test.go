package detect

import (
	"strings"
	"testing"

	"github.com/baukit/gaebconv/pkg/boq"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Path
	}{
		{"xml declaration", `<?xml version="1.0"?><GAEB></GAEB>`, PathStructured},
		{"xml declaration with leading whitespace", "\n  <?xml version=\"1.0\"?>", PathStructured},
		{"gaeb root without declaration", "<GAEB xmlns=\"x\">", PathStructured},
		{"gaeb marker mid-document", "garbage prefix <GAEB>", PathStructured},
		{"plain text", "Projekt: Neubau\n1.1 Mauerwerk 20m²", PathHeuristic},
		{"empty", "", PathHeuristic},
		{"html-ish but not gaeb", "<html><body></body></html>", PathHeuristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	gaeb90 := strings.Join([]string{
		"00 KOPFSATZ",
		"01 PROJEKTDATEN",
		"11 POSITION",
		"12 POSITION",
	}, "\n")

	tests := []struct {
		name     string
		text     string
		fileName string
		want     boq.Dialect
	}{
		{"xml content", "<?xml version=\"1.0\"?>", "lv.x83", boq.DialectGAEBXML},
		{"d83 extension", "irgendwas", "lv.d83", boq.DialectGAEB90},
		{"d83 extension uppercase", "irgendwas", "LV.D83", boq.DialectGAEB90},
		{"p83 extension", "irgendwas", "lv.p83", boq.DialectGAEB2000},
		{"gaeb2000 marker", "Format GAEB2000 Export", "lv.txt", boq.DialectGAEB2000},
		{"record lines", gaeb90, "lv.txt", boq.DialectGAEB90},
		{"two record lines are not enough", "00 A\n01 B\nProjekt", "lv.txt", boq.DialectUnknown},
		{"plain text", "Projekt: Neubau", "lv.txt", boq.DialectUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.text, tt.fileName); got != tt.want {
				t.Errorf("Label = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLabelContentBeatsExtension(t *testing.T) {
	// XML content under a .d83 name still labels as GAEB XML.
	if got := Label("<?xml version=\"1.0\"?><GAEB/>", "lv.d83"); got != boq.DialectGAEBXML {
		t.Errorf("Label = %s, want %s", got, boq.DialectGAEBXML)
	}
}
