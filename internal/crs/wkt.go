package crs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidWKT is returned when a string is not well-formed WKT.
var ErrInvalidWKT = errors.New("invalid WKT")

// ValueKind tells which field of a Value is set.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindEnum
	KindNode
)

// Value is a single argument of a WKT node.
type Value struct {
	Node   *Node
	Text   string // quoted text, or the literal as written for numbers and enums
	Number float64
	Kind   ValueKind
}

// Node is a WKT keyword with its bracketed arguments,
// e.g. SPHEROID["WGS 84",6378137,298.257223563].
type Node struct {
	Keyword string
	Args    []Value
}

// ParseNode parses WKT text into a node tree.
// Both square and round brackets are accepted as delimiters.
func ParseNode(text string) (*Node, error) {
	p := &wktParser{src: []rune(strings.TrimSpace(text))}
	if len(p.src) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidWKT)
	}

	n, err := p.node()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrInvalidWKT, p.pos)
	}

	return n, nil
}

// Child returns the first direct child node with one of the given keywords.
func (n *Node) Child(keywords ...string) *Node {
	if n == nil {
		return nil
	}
	for _, a := range n.Args {
		if a.Kind != KindNode {
			continue
		}
		for _, kw := range keywords {
			if strings.EqualFold(a.Node.Keyword, kw) {
				return a.Node
			}
		}
	}
	return nil
}

// Children returns all direct child nodes with the given keyword.
func (n *Node) Children(keyword string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, a := range n.Args {
		if a.Kind == KindNode && strings.EqualFold(a.Node.Keyword, keyword) {
			out = append(out, a.Node)
		}
	}
	return out
}

// Text returns the i-th argument as text. Numbers and enums are returned as written.
func (n *Node) Text(i int) string {
	if n == nil || i >= len(n.Args) || n.Args[i].Kind == KindNode {
		return ""
	}
	return n.Args[i].Text
}

// Number returns the i-th argument as a number.
func (n *Node) Number(i int) (float64, bool) {
	if n == nil || i >= len(n.Args) {
		return 0, false
	}
	switch n.Args[i].Kind {
	case KindNumber:
		return n.Args[i].Number, true
	case KindText:
		v, err := strconv.ParseFloat(strings.TrimSpace(n.Args[i].Text), 64)
		return v, err == nil
	}
	return 0, false
}

// String serializes the node as single line WKT.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b, -1, 0)
	return b.String()
}

// Pretty serializes the node as indented multi-line WKT.
func (n *Node) Pretty() string {
	var b strings.Builder
	n.write(&b, 0, 4)
	return b.String()
}

func (n *Node) write(b *strings.Builder, depth, indent int) {
	b.WriteString(n.Keyword)
	b.WriteByte('[')
	for i, a := range n.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		switch a.Kind {
		case KindNode:
			if depth >= 0 {
				b.WriteByte('\n')
				b.WriteString(strings.Repeat(" ", (depth+1)*indent))
				a.Node.write(b, depth+1, indent)
			} else {
				a.Node.write(b, depth, indent)
			}
		case KindText:
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(a.Text, `"`, `""`))
			b.WriteByte('"')
		default:
			b.WriteString(a.Text)
		}
	}
	b.WriteByte(']')
}

// NewNode builds a node from Go values: string becomes quoted text,
// float64/int become numbers, Enum becomes a bare literal and *Node is nested.
func NewNode(keyword string, args ...any) *Node {
	n := &Node{Keyword: keyword}
	for _, a := range args {
		switch v := a.(type) {
		case *Node:
			if v != nil {
				n.Args = append(n.Args, Value{Kind: KindNode, Node: v})
			}
		case string:
			n.Args = append(n.Args, Value{Kind: KindText, Text: v})
		case Enum:
			n.Args = append(n.Args, Value{Kind: KindEnum, Text: string(v)})
		case int:
			n.Args = append(n.Args, Value{Kind: KindNumber, Number: float64(v), Text: strconv.Itoa(v)})
		case float64:
			n.Args = append(n.Args, Value{Kind: KindNumber, Number: v, Text: strconv.FormatFloat(v, 'f', -1, 64)})
		default:
			panic(fmt.Sprintf("crs: unsupported WKT argument %T", a))
		}
	}
	return n
}

// Enum is an unquoted WKT literal such as NORTH or EAST.
type Enum string

type wktParser struct {
	src []rune
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *wktParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrInvalidWKT, fmt.Sprintf(format, args...), p.pos)
}

func (p *wktParser) node() (*Node, error) {
	p.skipSpace()
	kw := p.identifier()
	if kw == "" {
		return nil, p.errorf("keyword expected")
	}

	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		return nil, p.errorf("%q: opening bracket expected", kw)
	}
	closing := ']'
	if p.src[p.pos] == '(' {
		closing = ')'
	}
	p.pos++

	n := &Node{Keyword: kw}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("%q: unterminated node", kw)
		}
		if p.src[p.pos] == closing && len(n.Args) == 0 {
			p.pos++
			return n, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, v)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("%q: unterminated node", kw)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closing:
			p.pos++
			return n, nil
		default:
			return nil, p.errorf("%q: unexpected %q", kw, p.src[p.pos])
		}
	}
}

func (p *wktParser) value() (Value, error) {
	c := p.src[p.pos]
	switch {
	case c == '"':
		s, err := p.quoted()
		return Value{Kind: KindText, Text: s}, err
	case c == '-' || c == '+' || c == '.' || unicode.IsDigit(c):
		start := p.pos
		for p.pos < len(p.src) && strings.ContainsRune("0123456789+-.eE", p.src[p.pos]) {
			p.pos++
		}
		raw := string(p.src[start:p.pos])
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, p.errorf("bad number %q", raw)
		}
		return Value{Kind: KindNumber, Number: f, Text: raw}, nil
	case unicode.IsLetter(c) || c == '_':
		start := p.pos
		id := p.identifier()
		p.skipSpace()
		if p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '(') {
			p.pos = start
			n, err := p.node()
			return Value{Kind: KindNode, Node: n}, err
		}
		return Value{Kind: KindEnum, Text: id}, nil
	}
	return Value{}, p.errorf("unexpected %q", c)
}

func (p *wktParser) identifier() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *wktParser) quoted() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			b.WriteRune(c)
			continue
		}
		// doubled quote is an escaped quote
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			b.WriteRune('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", p.errorf("unterminated string")
}
