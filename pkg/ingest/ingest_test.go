package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/heuristic"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		fileName string
		want     bool
	}{
		{"lv.x83", true},
		{"lv.d83", true},
		{"lv.p83", true},
		{"lv.txt", true},
		{"LV.X83", true},
		{"lv.pdf", false},
		{"lv.xml", false},
		{"lv", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSupported(tt.fileName); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.fileName, got, tt.want)
		}
	}
}

func TestParseDispatchesStructured(t *testing.T) {
	text := `<?xml version="1.0"?>
<GAEB><BoQ><BoQCtgy RNoPart="1"><LblTx>Erdarbeiten</LblTx>
<Item ID="a"><Qty>5</Qty><QU>m3</QU></Item></BoQCtgy></BoQ></GAEB>`

	p := NewPipeline(nil)
	doc := p.Parse(text, "lv.x83")

	if doc.Header.DetectedFormat != boq.DialectGAEBXML {
		t.Errorf("DetectedFormat = %s", doc.Header.DetectedFormat)
	}
	if doc.TotalPositions != 2 {
		t.Errorf("TotalPositions = %d, want 2", doc.TotalPositions)
	}
	if doc.Positions[1].PositionNumber != "1.1" {
		t.Errorf("PositionNumber = %q, want 1.1", doc.Positions[1].PositionNumber)
	}
}

func TestParseFallbackMatchesHeuristicPath(t *testing.T) {
	// Classified as structured, but not decodable as XML: the whole input
	// goes down the heuristic path and the result must be exactly what a
	// direct heuristic parse would yield.
	text := "<?xml version=\"1.0\"?>\nProjekt: Test\n1.1 Mauerwerk 20m² 15,50€"

	p := NewPipeline(nil)
	got := p.Parse(text, "lv.x83")
	want := heuristic.NewParser(nil).Parse(text, "lv.x83")

	got.ProcessedAt = want.ProcessedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallback result diverges from heuristic parse:\ngot  %+v\nwant %+v", got, want)
	}
	if got.TotalPositions != 1 {
		t.Errorf("TotalPositions = %d, want 1", got.TotalPositions)
	}
}

func TestParsePlainTextGoesHeuristic(t *testing.T) {
	p := NewPipeline(nil)
	doc := p.Parse("Projekt: Neubau\n1.1 Aushub 120m³", "lv.txt")

	if doc.Header.ProjectName == nil || *doc.Header.ProjectName != "Neubau" {
		t.Errorf("ProjectName = %v", doc.Header.ProjectName)
	}
	if doc.TotalPositions != 1 {
		t.Errorf("TotalPositions = %d, want 1", doc.TotalPositions)
	}
}

func TestParseFileRejectsUnsupportedExtension(t *testing.T) {
	p := NewPipeline(nil)
	_, err := p.ParseFile(filepath.Join(t.TempDir(), "lv.pdf"))

	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("err = %v, want ErrUnsupportedExtension", err)
	}
}

func TestParseFileMissingFile(t *testing.T) {
	p := NewPipeline(nil)
	_, err := p.ParseFile(filepath.Join(t.TempDir(), "missing.txt"))

	if err == nil {
		t.Error("err = nil, want read failure")
	}
}

func TestParseFileReadsAndParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lv.txt")
	if err := os.WriteFile(path, []byte("Projekt: Neubau\n1.1 Mauerwerk 20m²\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPipeline(nil)
	doc, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if doc.FileName != "lv.txt" {
		t.Errorf("FileName = %q, want base name", doc.FileName)
	}
	if doc.TotalPositions != 1 {
		t.Errorf("TotalPositions = %d, want 1", doc.TotalPositions)
	}
}

func TestDecodeText(t *testing.T) {
	t.Run("utf8 passthrough", func(t *testing.T) {
		in := "Mauerwerk 20m² für 15,50€"
		got, err := DecodeText([]byte(in))
		if err != nil {
			t.Fatal(err)
		}
		if got != in {
			t.Errorf("got %q, want passthrough", got)
		}
	})

	t.Run("latin-1 fallback", func(t *testing.T) {
		// "Dämmung" with a Latin-1 encoded umlaut, invalid as UTF-8.
		in := []byte{'D', 0xe4, 'm', 'm', 'u', 'n', 'g'}
		got, err := DecodeText(in)
		if err != nil {
			t.Fatal(err)
		}
		if got != "Dämmung" {
			t.Errorf("got %q, want Dämmung", got)
		}
	})
}
