package boq

import "testing"

func TestNodeTypeDisplayName(t *testing.T) {
	tests := []struct {
		typ  NodeType
		want string
	}{
		{NodeTitle, "Titel"},
		{NodePosition, "Position"},
		{NodeText, "Text"},
		{NodeCalculation, "Berechnung"},
		{NodeType("bogus"), "Unbekannt"},
	}

	for _, tt := range tests {
		if got := tt.typ.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestNewParsedDocumentInvariant(t *testing.T) {
	positions := []PositionNode{
		{ID: "pos_1", Title: "Erdarbeiten", Type: NodeTitle},
		{ID: "pos_2", Title: "Aushub", Type: NodePosition},
	}

	doc := NewParsedDocument(DocumentHeader{}, positions, "raw", "lv.txt")

	if doc.TotalPositions != len(doc.Positions) {
		t.Errorf("TotalPositions = %d, want %d", doc.TotalPositions, len(doc.Positions))
	}
	if doc.ProcessedAt.IsZero() {
		t.Error("ProcessedAt not set")
	}
	if doc.FileName != "lv.txt" {
		t.Errorf("FileName = %q", doc.FileName)
	}
}

func TestNewParsedDocumentNilPositions(t *testing.T) {
	doc := NewParsedDocument(DocumentHeader{}, nil, "", "empty.txt")

	if doc.Positions == nil {
		t.Fatal("Positions is nil, want empty slice")
	}
	if doc.TotalPositions != 0 {
		t.Errorf("TotalPositions = %d, want 0", doc.TotalPositions)
	}
}

func TestCountByType(t *testing.T) {
	doc := NewParsedDocument(DocumentHeader{}, []PositionNode{
		{ID: "a", Type: NodeTitle},
		{ID: "b", Type: NodePosition},
		{ID: "c", Type: NodePosition},
		{ID: "d", Type: NodeCalculation},
	}, "", "lv.txt")

	if got := doc.CountByType(NodePosition); got != 2 {
		t.Errorf("CountByType(position) = %d, want 2", got)
	}
	if got := doc.CountByType(NodeText); got != 0 {
		t.Errorf("CountByType(text) = %d, want 0", got)
	}
}

func TestSummaryFallsBackToUnknown(t *testing.T) {
	doc := NewParsedDocument(DocumentHeader{}, nil, "", "lv.txt")

	want := "lv.txt: Unknown, 0 Kategorien, 0 Positionen, 0 Zeilen gesamt"
	if got := doc.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
