package boq

import "testing"

func doc(fileName string) *ParsedDocument {
	return NewParsedDocument(DocumentHeader{}, nil, "", fileName)
}

func TestCollectionPutAppends(t *testing.T) {
	c := NewCollection()
	c.Put(doc("a.txt"))
	c.Put(doc("b.txt"))

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	docs := c.Documents()
	if docs[0].FileName != "a.txt" || docs[1].FileName != "b.txt" {
		t.Errorf("insertion order lost: %s, %s", docs[0].FileName, docs[1].FileName)
	}
}

func TestCollectionPutReplacesByFileName(t *testing.T) {
	c := NewCollection()
	c.Put(doc("a.txt"))
	c.Put(doc("b.txt"))

	replacement := doc("a.txt")
	replacement.RawText = "second pass"
	c.Put(replacement)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2 after replacement", c.Len())
	}
	docs := c.Documents()
	if docs[0].RawText != "second pass" {
		t.Error("replacement did not keep original position")
	}
}

func TestCollectionRemove(t *testing.T) {
	c := NewCollection()
	c.Put(doc("a.txt"))

	if !c.Remove("a.txt") {
		t.Error("Remove(a.txt) = false, want true")
	}
	if c.Remove("a.txt") {
		t.Error("second Remove(a.txt) = true, want false")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestCollectionGet(t *testing.T) {
	c := NewCollection()
	c.Put(doc("a.txt"))

	if got := c.Get("a.txt"); got == nil || got.FileName != "a.txt" {
		t.Errorf("Get(a.txt) = %v", got)
	}
	if got := c.Get("missing.txt"); got != nil {
		t.Errorf("Get(missing.txt) = %v, want nil", got)
	}
}

func TestCollectionDocumentsIsSnapshot(t *testing.T) {
	c := NewCollection()
	c.Put(doc("a.txt"))

	snap := c.Documents()
	c.Put(doc("b.txt"))

	if len(snap) != 1 {
		t.Errorf("snapshot len = %d, want 1", len(snap))
	}
}
