package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xyproto/wist/internal/sexpr"
)

// Read builds a tree from its s-expression form.
//
// Every list is (kind [text] children...). Bare atoms are shorthand:
// symbols are identifiers, numbers are int/float literals and strings are
// string literals. Inside (ident name ...) and in the return type position
// of (func ...), a bare symbol is a type name.
func Read(input string) (*Tree, error) {
	forms, err := sexpr.ParseAll(input)
	if err != nil {
		return nil, err
	}
	t := NewTree()
	if len(forms) == 1 && forms[0].Head() == "program" {
		forms = forms[0].Items[1:]
	}
	for _, form := range forms {
		if err := t.read(t.Root(), form, KindInvalid, -1); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// read converts sx into a child of parent. parentKind and pos describe
// where sx sits, for the type shorthand.
func (t *Tree) read(parent int, sx *sexpr.Node, parentKind Kind, pos int) error {
	if sx.IsAtom() {
		return t.readAtom(parent, sx, parentKind, pos)
	}
	head := sx.Head()
	if head == "" {
		return fmt.Errorf("line %d: list must start with a node kind", sx.Line)
	}
	kind := ParseKind(head)
	if kind == KindInvalid || kind == KindProgram {
		return fmt.Errorf("line %d: unknown node kind %q", sx.Line, head)
	}
	rest := sx.Items[1:]
	text := ""
	if kind.HasText() {
		if len(rest) == 0 || !rest[0].IsAtom() {
			return fmt.Errorf("line %d: %s needs a name or literal", sx.Line, head)
		}
		text = rest[0].Text
		rest = rest[1:]
	}
	id := t.Add(parent, kind, text)
	for i, child := range rest {
		if err := t.read(id, child, kind, i); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) readAtom(parent int, sx *sexpr.Node, parentKind Kind, pos int) error {
	switch sx.Type {
	case sexpr.NodeInteger:
		t.Add(parent, KindInt, sx.Text)
	case sexpr.NodeFloat:
		t.Add(parent, KindFloat, sx.Text)
	case sexpr.NodeString:
		t.Add(parent, KindString, sx.Text)
	default:
		if parentKind == KindIdent || (parentKind == KindFunc && pos == 1) {
			t.Add(parent, KindType, sx.Text)
		} else {
			t.Add(parent, KindIdent, sx.Text)
		}
	}
	return nil
}

// Format prints the subtree at id in the canonical s-expression form
func (t *Tree) Format(id int) string {
	var sb strings.Builder
	t.format(&sb, id)
	return sb.String()
}

func (t *Tree) format(sb *strings.Builder, id int) {
	n := &t.Nodes[id]
	sb.WriteByte('(')
	sb.WriteString(n.Kind.String())
	if n.Kind.HasText() {
		sb.WriteByte(' ')
		switch n.Kind {
		case KindString, KindImport, KindChar:
			sb.WriteString(strconv.Quote(n.Text))
		default:
			sb.WriteString(n.Text)
		}
	}
	for _, c := range n.Children {
		sb.WriteByte(' ')
		t.format(sb, c)
	}
	sb.WriteByte(')')
}

// String prints the whole tree
func (t *Tree) String() string {
	return t.Format(t.Root())
}
