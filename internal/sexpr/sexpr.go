// Package sexpr reads and prints the s-expressions used for syntax tree
// interchange, library manifests and golden test cases.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeFloat
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeFloat:
		return "float"
	case NodeList:
		return "list"
	default:
		return "unknown"
	}
}

// Node is an atom or a list
type Node struct {
	Type  NodeType
	Text  string  // atoms; strings are unescaped
	Items []*Node // NodeList
	Line  int     // 1-based line the node starts on
}

func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom reports whether the node is not a list
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// Head returns the leading symbol of a list, or "" if there is none
func (n *Node) Head() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

func (n *Node) String() string {
	switch n.Type {
	case NodeString:
		return strconv.Quote(n.Text)
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return n.Text
	}
}

// Parse parses exactly one s-expression
func Parse(input string) (*Node, error) {
	nodes, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected one expression, found %d", len(nodes))
	}
	return nodes[0], nil
}

// ParseAll parses every top-level s-expression in input
func ParseAll(input string) ([]*Node, error) {
	p := &parser{input: input, line: 1}
	var nodes []*Node
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nodes, nil
		}
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

type parser struct {
	input string
	pos   int
	line  int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}

// skipSpace skips whitespace and ';' comments
func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == ';':
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) parseNode() (*Node, error) {
	line := p.line
	switch c := p.input[p.pos]; c {
	case '(':
		p.pos++
		list := &Node{Type: NodeList, Line: line}
		for {
			p.skipSpace()
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("line %d: unclosed list", line)
			}
			if p.input[p.pos] == ')' {
				p.pos++
				return list, nil
			}
			item, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
	case ')':
		return nil, p.errorf("unexpected ')'")
	case '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &Node{Type: NodeString, Text: s, Line: line}, nil
	default:
		return p.parseAtom(line), nil
	}
}

func (p *parser) parseString() (string, error) {
	var sb strings.Builder
	p.pos++ // opening quote
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		p.pos++
		switch c {
		case '"':
			return sb.String(), nil
		case '\n':
			p.line++
			sb.WriteByte(c)
		case '\\':
			if p.pos >= len(p.input) {
				return "", p.errorf("unterminated escape")
			}
			e := p.input[p.pos]
			p.pos++
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '0':
				sb.WriteByte(0)
			case '\\', '"':
				sb.WriteByte(e)
			default:
				return "", p.errorf("unknown escape \\%c", e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) parseAtom(line int) *Node {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '(' || c == ')' || c == ';' || c == '"' {
			break
		}
		p.pos++
	}
	text := p.input[start:p.pos]
	if isInteger(text) {
		return &Node{Type: NodeInteger, Text: text, Line: line}
	}
	if looksNumeric(text) {
		if _, err := strconv.ParseFloat(text, 64); err == nil {
			return &Node{Type: NodeFloat, Text: text, Line: line}
		}
	}
	return &Node{Type: NodeSymbol, Text: text, Line: line}
}

// isInteger reports whether s is a decimal integer or a 0x hex integer,
// with an optional sign. The range is checked by ParseInteger.
func isInteger(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	base := 10
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		s, base = rest, 16
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if digitValue(s[i]) >= base {
			return false
		}
	}
	return true
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 99
}

// ParseInteger converts the text of an integer atom. Digits are decimal,
// so a leading zero is not octal; hex needs the 0x prefix.
func ParseInteger(text string) (int64, error) {
	sign, s := "", text
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseInt(sign+rest, 16, 64)
	}
	return strconv.ParseInt(text, 10, 64)
}

// looksNumeric keeps symbols like "inf" or "nan" from parsing as floats
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c == '-' || c == '+' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	return (c >= '0' && c <= '9') || c == '.'
}
