package textutil

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	guidRunRe   = regexp.MustCompile(`[a-fA-F0-9-]{36}`)
	curlyGuidRe = regexp.MustCompile(`\{[a-fA-F0-9-]+\}`)
	exactGuidRe = regexp.MustCompile(`^[a-fA-F0-9-]{36}$`)
)

var droppedAttrs = map[string]struct{}{
	"fmtid": {},
	"pid":   {},
	"type":  {},
}

type xmlNode struct {
	tag      string
	attrs    []xml.Attr
	text     strings.Builder
	children []*xmlNode
}

// CleanXML sanitizes office metadata XML for human and LLM consumption:
// namespace prefixes are stripped, GUID-valued attributes and elements go,
// and elements left empty are pruned. Returns the serialized cleaned tree.
func CleanXML(content []byte) (string, error) {
	root, err := parseXML(content)
	if err != nil {
		return "", err
	}
	pruneGUIDText(root)
	pruneEmpty(root)

	var b strings.Builder
	writeXML(&b, root)
	return b.String(), nil
}

func parseXML(content []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var stack []*xmlNode
	var root *xmlNode

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("textutil: parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{tag: t.Name.Local, attrs: filterAttrs(t.Attr)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("textutil: parse xml: multiple roots")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("textutil: parse xml: no root element")
	}
	return root, nil
}

// filterAttrs drops namespace declarations, GUID-valued attributes, and
// well-known identifier attributes that carry no human meaning.
func filterAttrs(attrs []xml.Attr) []xml.Attr {
	var kept []xml.Attr
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if _, drop := droppedAttrs[a.Name.Local]; drop {
			continue
		}
		if guidRunRe.MatchString(a.Value) || curlyGuidRe.MatchString(a.Value) {
			continue
		}
		kept = append(kept, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
	}
	return kept
}

func pruneGUIDText(n *xmlNode) {
	var kept []*xmlNode
	for _, child := range n.children {
		pruneGUIDText(child)
		if exactGuidRe.MatchString(strings.TrimSpace(child.text.String())) {
			continue
		}
		kept = append(kept, child)
	}
	n.children = kept
}

func pruneEmpty(n *xmlNode) {
	var kept []*xmlNode
	for _, child := range n.children {
		pruneEmpty(child)
		if strings.TrimSpace(child.text.String()) == "" && len(child.children) == 0 {
			continue
		}
		kept = append(kept, child)
	}
	n.children = kept
}

func writeXML(b *strings.Builder, n *xmlNode) {
	b.WriteByte('<')
	b.WriteString(n.tag)
	for _, a := range n.attrs {
		fmt.Fprintf(b, " %s=%q", a.Name.Local, a.Value)
	}
	b.WriteByte('>')
	_ = xml.EscapeText(b, []byte(strings.TrimSpace(n.text.String())))
	for _, child := range n.children {
		writeXML(b, child)
	}
	b.WriteString("</" + n.tag + ">")
}
