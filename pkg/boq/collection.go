package boq

import "sync"

// Collection is the shared list of parsed documents. Documents are published
// append-or-replace by file name; a published document is never mutated in
// place, so readers can hold returned pointers safely.
type Collection struct {
	mu   sync.RWMutex
	docs []*ParsedDocument
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Put adds a document. A document with the same file name replaces the prior
// entry at its original position; otherwise the document is appended.
func (c *Collection) Put(doc *ParsedDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.docs {
		if existing.FileName == doc.FileName {
			c.docs[i] = doc
			return
		}
	}
	c.docs = append(c.docs, doc)
}

// Remove deletes the document with the given file name. It reports whether
// an entry was removed.
func (c *Collection) Remove(fileName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.docs {
		if existing.FileName == fileName {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the document with the given file name, or nil.
func (c *Collection) Get(fileName string) *ParsedDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, existing := range c.docs {
		if existing.FileName == fileName {
			return existing
		}
	}
	return nil
}

// Documents returns a snapshot of the collection in insertion order.
func (c *Collection) Documents() []*ParsedDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*ParsedDocument, len(c.docs))
	copy(out, c.docs)
	return out
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}
