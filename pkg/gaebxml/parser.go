// Package gaebxml parses the GAEB DA XML dialect family into the shared
// hierarchy model. Element naming and nesting vary between DA81-DA86
// exports, so the parser decodes into a generic element tree and locates the
// bill-of-quantities substructure by local name instead of relying on a
// fixed schema.
package gaebxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/baukit/gaebconv/pkg/boq"
)

// ErrMalformed reports that the markup could not be parsed into a document
// tree. Callers are expected to hand the raw input to the heuristic line
// parser instead; results of the two paths are never mixed.
var ErrMalformed = errors.New("malformed GAEB XML")

// titleTruncateLimit caps titles taken from detail text.
const titleTruncateLimit = 100

// element is a generic XML tree node. Attribute and child lookups go through
// local names so namespaced and unnamespaced exports parse alike.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
	Text     string     `xml:",chardata"`
}

// attr returns the value of the attribute with the given local name.
func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// child returns the first direct child with the given local name, or nil.
func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// children returns all direct children with the given local name.
func (e *element) children(name string) []*element {
	var out []*element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			out = append(out, &e.Children[i])
		}
	}
	return out
}

// find returns the first element with the given local name in document
// order, searching the whole subtree.
func (e *element) find(name string) *element {
	if e.XMLName.Local == name {
		return e
	}
	for i := range e.Children {
		if found := e.Children[i].find(name); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects every element with the given local name in document order.
func (e *element) findAll(name string, out []*element) []*element {
	if e.XMLName.Local == name {
		out = append(out, e)
	}
	for i := range e.Children {
		out = e.Children[i].findAll(name, out)
	}
	return out
}

// text returns the element's flattened text content with normalized
// whitespace.
func (e *element) text() string {
	var sb strings.Builder
	e.collectText(&sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func (e *element) collectText(sb *strings.Builder) {
	sb.WriteString(e.Text)
	for i := range e.Children {
		sb.WriteString(" ")
		e.Children[i].collectText(sb)
	}
}

// Parser extracts categories and items from GAEB XML text.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a structured-markup parser. A nil logger disables
// logging.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Parse produces one ParsedDocument from raw markup text. A non-nil error
// wraps ErrMalformed and means the whole input should be re-parsed on the
// heuristic path; no partial result is returned in that case.
func (p *Parser) Parse(text, fileName string) (*boq.ParsedDocument, error) {
	var root element
	decoder := xml.NewDecoder(strings.NewReader(text))
	decoder.Strict = false
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	header := p.extractHeader(&root)
	nodes := p.extractHierarchy(&root)

	return boq.NewParsedDocument(header, nodes, text, fileName), nil
}

// extractHeader reads the version marker from the root's namespace
// declaration and the project name from the award section candidates, tried
// in fixed priority order: NamePrj, then Name, then LblPrj. First non-empty
// match wins.
func (p *Parser) extractHeader(root *element) boq.DocumentHeader {
	header := boq.DocumentHeader{DetectedFormat: boq.DialectGAEBXML}

	if ns := root.attr("xmlns"); ns != "" {
		header.Version = boq.StringPtr(ns)
	} else if v := root.find("Version"); v != nil {
		if text := v.text(); text != "" {
			header.Version = boq.StringPtr(text)
		}
	}

	scope := root
	if award := root.find("Award"); award != nil {
		scope = award
	}
	for _, candidate := range []string{"NamePrj", "Name", "LblPrj"} {
		if el := scope.find(candidate); el != nil {
			if text := el.text(); text != "" {
				header.ProjectName = boq.StringPtr(text)
				break
			}
		}
	}

	return header
}

// extractHierarchy locates the bill-of-quantities section and walks its
// categories in document order. A category or item whose extraction panics
// is skipped without aborting the rest of the document.
func (p *Parser) extractHierarchy(root *element) []boq.PositionNode {
	boqRoot := root.find("BoQ")
	if boqRoot == nil {
		boqRoot = root
	}

	nodes := make([]boq.PositionNode, 0)
	seen := make(map[string]int)

	categories := boqRoot.findAll("BoQCtgy", nil)
	for idx, ctgy := range categories {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Warn("skipping category after extraction failure",
						zap.Int("category", idx+1),
						zap.Any("cause", r))
				}
			}()
			nodes = p.extractCategory(ctgy, idx, nodes, seen)
		}()
	}

	return nodes
}

// extractCategory emits one title node for the category followed by one node
// per item. The category ordinal prefers an integer-parseable RNoPart
// attribute; item ordinals are always the 1-based sequential index so the
// synthesized numbering stays stable regardless of gaps in the source.
func (p *Parser) extractCategory(ctgy *element, idx int, nodes []boq.PositionNode, seen map[string]int) []boq.PositionNode {
	catOrdinal := idx + 1
	if rno := ctgy.attr("RNoPart"); rno != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(rno)); err == nil {
			catOrdinal = n
		}
	}

	title := ""
	if lbl := scopedFind(ctgy, "LblTx"); lbl != nil {
		title = lbl.text()
	}
	if title == "" {
		title = "Unknown Category"
	}

	catID := uniqueID(seen, "pos_"+strconv.Itoa(catOrdinal))
	nodes = append(nodes, boq.PositionNode{
		ID:             catID,
		PositionNumber: strconv.Itoa(catOrdinal),
		Title:          title,
		Level:          0,
		Type:           boq.NodeTitle,
	})

	items := collectItems(ctgy, nil)
	for i, item := range items {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Warn("skipping item after extraction failure",
						zap.String("category", catID),
						zap.Int("item", i+1),
						zap.Any("cause", r))
				}
			}()
			node := p.extractItem(item, catOrdinal, i+1, catID, seen)
			nodes = append(nodes, node)
		}()
	}

	return nodes
}

// extractItem builds a position node for one item element. The item ordinal
// within the category is the sequential index; the item's own RNoPart is
// read only as an id fallback, never for numbering.
func (p *Parser) extractItem(item *element, catOrdinal, itemOrdinal int, parentID string, seen map[string]int) boq.PositionNode {
	id := item.attr("ID")
	if id == "" {
		if rno := strings.TrimSpace(item.attr("RNoPart")); rno != "" {
			id = "item_" + rno
		} else {
			id = "item_" + strconv.Itoa(itemOrdinal)
		}
	}
	id = uniqueID(seen, id)

	node := boq.PositionNode{
		ID:             id,
		PositionNumber: fmt.Sprintf("%d.%d", catOrdinal, itemOrdinal),
		Level:          1,
		Parent:         parentID,
		Type:           boq.NodePosition,
	}

	if qty := item.child("Qty"); qty != nil {
		// Parse failure leaves the quantity absent, never zero.
		if v, err := strconv.ParseFloat(strings.TrimSpace(qty.text()), 64); err == nil {
			node.Quantity = boq.FloatPtr(v)
		}
	}
	if qu := item.child("QU"); qu != nil {
		if unit := qu.text(); unit != "" && !isCurrencyCode(unit) {
			node.Unit = unit
		}
	}
	if up := item.find("UP"); up != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(up.text()), 64); err == nil {
			node.UnitPrice = boq.FloatPtr(v)
		}
	}
	if it := item.find("IT"); it != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(it.text()), 64); err == nil {
			node.TotalPrice = boq.FloatPtr(v)
		}
	}

	paragraphs := detailParagraphs(item)

	node.Title = itemTitle(item, paragraphs, itemOrdinal)
	if desc := strings.Join(paragraphs, " "); desc != "" {
		node.Description = boq.StringPtr(desc)
	}

	return node
}

// itemTitle prefers the short outline text; absent that, the first detail
// paragraph truncated to 100 characters. A placeholder covers empty
// extraction.
func itemTitle(item *element, paragraphs []string, itemOrdinal int) string {
	if outline := item.find("TextOutlTxt"); outline != nil {
		if t := outline.text(); t != "" {
			return t
		}
	}
	if outline := item.find("OutlineText"); outline != nil {
		if t := outline.text(); t != "" {
			return t
		}
	}
	if len(paragraphs) > 0 {
		return truncate(paragraphs[0], titleTruncateLimit)
	}
	return "Position " + strconv.Itoa(itemOrdinal)
}

// detailParagraphs returns the non-empty paragraph texts of the item's
// detail text block in order.
func detailParagraphs(item *element) []string {
	detail := item.find("DetailTxt")
	if detail == nil {
		return nil
	}
	var out []string
	for _, para := range detail.findAll("p", nil) {
		if t := para.text(); t != "" {
			out = append(out, t)
		}
	}
	// Some exports put detail text in <span> runs without <p> wrappers.
	if len(out) == 0 {
		if t := detail.text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// collectItems gathers the item elements belonging to a category without
// descending into nested categories, which own their items themselves.
func collectItems(e *element, out []*element) []*element {
	for i := range e.Children {
		c := &e.Children[i]
		switch c.XMLName.Local {
		case "BoQCtgy":
			continue
		case "Item":
			out = append(out, c)
		default:
			out = collectItems(c, out)
		}
	}
	return out
}

// scopedFind locates the first descendant with the given local name without
// crossing into nested categories.
func scopedFind(e *element, name string) *element {
	for i := range e.Children {
		c := &e.Children[i]
		if c.XMLName.Local == "BoQCtgy" {
			continue
		}
		if c.XMLName.Local == name {
			return c
		}
		if found := scopedFind(c, name); found != nil {
			return found
		}
	}
	return nil
}

// uniqueID disambiguates duplicate ids within a document.
func uniqueID(seen map[string]int, id string) string {
	seen[id]++
	if seen[id] == 1 {
		return id
	}
	return fmt.Sprintf("%s_%d", id, seen[id])
}

func isCurrencyCode(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "€", "eur", "dm":
		return true
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
