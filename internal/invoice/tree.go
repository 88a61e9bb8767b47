package invoice

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// =============================================================================
// NAMESPACE-AGNOSTIC ELEMENT TREE
// =============================================================================
//
// Issuer software disagrees on namespace prefixes ("cbc:ID", "ID" with a
// default namespace, "ns2:ID"...). The tree keeps only local names, so field
// lookups never depend on which prefix or namespace URI a document uses.

// element is one XML element with its direct text and children.
type element struct {
	name     string
	attrs    []xml.Attr
	text     strings.Builder
	children []*element
}

var utf8BOM = []byte("\xef\xbb\xbf")

// parseTree decodes data into an element tree and returns the root element.
func parseTree(data []byte) (*element, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var root *element
	var stack []*element

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("more than one root element (%s, %s)", root.name, el.name)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].name)
	}
	return root, nil
}

// child returns the first direct child named name, or nil.
func (e *element) child(name string) *element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// all returns every direct child named name, in document order.
func (e *element) all(name string) []*element {
	if e == nil {
		return nil
	}
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// path follows a chain of direct children.
func (e *element) path(names ...string) *element {
	cur := e
	for _, n := range names {
		cur = cur.child(n)
	}
	return cur
}

// find returns the first descendant named name in document order, or nil.
func (e *element) find(name string) *element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.name == name {
			return c
		}
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

// value returns the element's own text, trimmed. Nil elements have "".
func (e *element) value() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.text.String())
}

// attr returns the value of the attribute with the given local name.
func (e *element) attr(name string) string {
	if e == nil {
		return ""
	}
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}
