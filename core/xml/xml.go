// Package xml provides a pure Go XML document model with XPath queries.
// It wraps xmlquery so callers walk elements, attributes and mixed text
// content without touching the underlying node type.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     which doesn't fetch external entities by default, and we explicitly
//     disable entity expansion in validation functions.
//   - The xmlquery library is used for parsing, which uses Go's encoding/xml
//     internally and inherits its security properties. Non-UTF-8 documents
//     (windows-1251, koi8-r) are decoded through the charset declared in the
//     XML prolog.
package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an XML node (element, text, attribute, etc.).
type Node struct {
	node *xmlquery.Node
}

// ValidationResult contains the result of XML validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Line    int
	Message string
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader parses XML from r and returns a Document.
func ParseReader(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// Validate checks that data is well-formed XML.
//
// Security: entity expansion is disabled. Go's xml.Decoder does not fetch
// external entities, and the empty Entity map rejects internal ones too.
func Validate(data []byte) ValidationResult {
	result := ValidationResult{Valid: true}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}
	decoder.CharsetReader = passthroughCharset

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			verr := ValidationError{Message: err.Error()}
			if se, ok := err.(*xml.SyntaxError); ok {
				verr.Line = se.Line
				verr.Message = se.Msg
			}
			result.Valid = false
			result.Errors = append(result.Errors, verr)
			break
		}
	}

	return result
}

// passthroughCharset lets well-formedness checks proceed on documents that
// declare a legacy encoding. Byte-level structure is unaffected.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d.root == nil {
		return nil
	}
	// Find the first element child
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// XPath executes an XPath query and returns matching nodes.
func (d *Document) XPath(expr string) ([]*Node, error) {
	return query(d.root, expr)
}

// XPathFirst executes an XPath query and returns the first matching node.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	return queryFirst(d.root, expr)
}

func query(root *xmlquery.Node, expr string) ([]*Node, error) {
	// Compile the expression to check for errors
	_, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	nodes, err := xmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}

	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

func queryFirst(root *xmlquery.Node, expr string) (*Node, error) {
	_, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	node, err := xmlquery.Query(root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}
	if node == nil {
		return nil, nil
	}
	return &Node{node: node}, nil
}

// Name returns the element local name, or "" for non-element nodes.
func (n *Node) Name() string {
	if n.node == nil || n.node.Type != xmlquery.ElementNode {
		return ""
	}
	return n.node.Data
}

// IsText reports whether the node is character data (plain or CDATA).
func (n *Node) IsText() bool {
	return n.node != nil && (n.node.Type == xmlquery.TextNode || n.node.Type == xmlquery.CharDataNode)
}

// Data returns the raw character data of a text node.
func (n *Node) Data() string {
	if !n.IsText() {
		return ""
	}
	return n.node.Data
}

// Line returns the source line of the node, when known.
func (n *Node) Line() int {
	if n.node == nil {
		return 0
	}
	return n.node.LineNumber
}

// Text returns all text content of the node and its descendants.
func (n *Node) Text() string {
	if n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

// Children returns the child element nodes.
func (n *Node) Children() []*Node {
	if n.node == nil {
		return nil
	}

	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// Nodes returns the element and text children of the node in document order.
// Comments and processing instructions are skipped.
func (n *Node) Nodes() []*Node {
	if n.node == nil {
		return nil
	}

	var nodes []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode, xmlquery.TextNode, xmlquery.CharDataNode:
			nodes = append(nodes, &Node{node: child})
		}
	}
	return nodes
}

// Attr returns the value of the first attribute with the given local name,
// whatever its namespace prefix. FB2 documents bind the XLink namespace to
// arbitrary prefixes ("l:href", "xlink:href").
func (n *Node) Attr(local string) string {
	v, _ := n.LookupAttr(local)
	return v
}

// LookupAttr is like Attr but also reports whether the attribute exists.
func (n *Node) LookupAttr(local string) (string, bool) {
	if n.node == nil {
		return "", false
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == local && attr.Name.Space != "xmlns" {
			return attr.Value, true
		}
	}
	return "", false
}

// NSAttr returns the value of the attribute with the given prefix and local
// name, for example NSAttr("xml", "lang").
func (n *Node) NSAttr(prefix, local string) string {
	if n.node == nil {
		return ""
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Space == prefix && attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
