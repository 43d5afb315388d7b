package catalogs

import (
	"fmt"
	"strconv"
	"strings"

	"nations.ai/internal/protocol"
)

// Node is one element of a parenthesized template document: either an atom
// or a list of nodes.
type Node struct {
	Atom   string
	List   []Node
	IsList bool
}

func (n Node) Int() (int, bool) {
	if n.IsList {
		return 0, false
	}
	v, err := strconv.Atoi(n.Atom)
	return v, err == nil
}

func (n Node) String() string {
	if !n.IsList {
		return n.Atom
	}
	parts := make([]string, len(n.List))
	for i, c := range n.List {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Tokenize splits text into parentheses and atoms. A ';' starts a comment
// that runs to the end of the line.
func Tokenize(text string) []string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	spaced := strings.NewReplacer("(", " ( ", ")", " ) ").Replace(b.String())
	return strings.Fields(spaced)
}

// ParseDocument parses every top-level form in text.
func ParseDocument(text string) ([]Node, error) {
	tokens := Tokenize(text)
	var out []Node
	pos := 0
	for pos < len(tokens) {
		n, next, err := parseNode(tokens, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		pos = next
	}
	return out, nil
}

func parseNode(tokens []string, pos int) (Node, int, error) {
	if pos >= len(tokens) {
		return Node{}, pos, fmt.Errorf("%w: unexpected end of input", protocol.ErrMalformedTemplate)
	}
	switch tok := tokens[pos]; tok {
	case "(":
		n := Node{IsList: true}
		pos++
		for pos < len(tokens) && tokens[pos] != ")" {
			child, next, err := parseNode(tokens, pos)
			if err != nil {
				return Node{}, pos, err
			}
			n.List = append(n.List, child)
			pos = next
		}
		if pos >= len(tokens) {
			return Node{}, pos, fmt.Errorf("%w: missing closing parenthesis", protocol.ErrMalformedTemplate)
		}
		return n, pos + 1, nil
	case ")":
		return Node{}, pos, fmt.Errorf("%w: unexpected closing parenthesis at token %d", protocol.ErrMalformedTemplate, pos)
	default:
		return Node{Atom: tok}, pos + 1, nil
	}
}

// ParseTemplates extracts every (TRANSFORM ...) form from a template
// document. Other top-level forms are ignored.
func ParseTemplates(text string) ([]*Template, error) {
	forms, err := ParseDocument(text)
	if err != nil {
		return nil, err
	}
	var out []*Template
	for _, f := range forms {
		if !f.IsList || len(f.List) == 0 || f.List[0].IsList {
			continue
		}
		if !strings.EqualFold(f.List[0].Atom, protocol.ActionTransform) {
			continue
		}
		t, err := templateFromForm(f)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// templateFromForm reads
//
//	(TRANSFORM name (INPUTS (res qty)...) (OUTPUTS (res qty)...))
//
// Section headers are case-insensitive; unknown sections are ignored.
func templateFromForm(f Node) (*Template, error) {
	if len(f.List) < 4 {
		return nil, fmt.Errorf("%w: %s needs a name and INPUTS/OUTPUTS sections", protocol.ErrMalformedTemplate, f)
	}
	fallback := ""
	if nameNode := f.List[1]; !nameNode.IsList {
		if _, isInt := nameNode.Int(); !isInt {
			fallback = nameNode.Atom
		}
	}

	var inputs, outputs []ItemCount
	for _, section := range f.List[2:] {
		if !section.IsList || len(section.List) < 2 || section.List[0].IsList {
			continue
		}
		header := strings.ToUpper(section.List[0].Atom)
		for _, entry := range section.List[1:] {
			if !entry.IsList || len(entry.List) != 2 || entry.List[0].IsList {
				return nil, fmt.Errorf("%w: %s entry %s is not (resource quantity)", protocol.ErrMalformedTemplate, header, entry)
			}
			qty, ok := entry.List[1].Int()
			if !ok {
				return nil, fmt.Errorf("%w: quantity for resource %s is not an integer: %s", protocol.ErrMalformedTemplate, entry.List[0].Atom, entry.List[1])
			}
			ic := ItemCount{Item: entry.List[0].Atom, Count: qty}
			switch header {
			case "INPUTS":
				inputs = append(inputs, ic)
			case "OUTPUTS":
				outputs = append(outputs, ic)
			}
		}
	}
	return NewTemplate(fallback, inputs, outputs)
}
