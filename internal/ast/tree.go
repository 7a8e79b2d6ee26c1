// Package ast holds the syntax tree handed to the backend by the front end.
//
// The tree is an arena: nodes refer to their children and their parent by
// index, so there are no pointer cycles between a node and its parent.
package ast

// Kind is the tag of a syntax tree node
type Kind int

const (
	KindInvalid Kind = iota
	KindProgram
	KindImport
	KindStruct
	KindFunc
	KindParams
	KindBlock
	KindIdent
	KindType
	KindSet
	KindInt
	KindFloat
	KindChar
	KindString
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindMod
	KindEq
	KindNe
	KindLt
	KindLe
	KindGt
	KindGe
	KindNot
	KindRef
	KindDeref
	KindMember
	KindCall
	KindRet
	KindIf
	KindElif
	KindElse
	KindFor
	KindLabel
	KindGoto
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindProgram: "program",
	KindImport:  "import",
	KindStruct:  "struct",
	KindFunc:    "func",
	KindParams:  "params",
	KindBlock:   "block",
	KindIdent:   "ident",
	KindType:    "type",
	KindSet:     "set",
	KindInt:     "int",
	KindFloat:   "float",
	KindChar:    "char",
	KindString:  "string",
	KindAdd:     "add",
	KindSub:     "sub",
	KindMul:     "mul",
	KindDiv:     "div",
	KindMod:     "mod",
	KindEq:      "eq",
	KindNe:      "ne",
	KindLt:      "lt",
	KindLe:      "le",
	KindGt:      "gt",
	KindGe:      "ge",
	KindNot:     "not",
	KindRef:     "ref",
	KindDeref:   "deref",
	KindMember:  "member",
	KindCall:    "call",
	KindRet:     "ret",
	KindIf:      "if",
	KindElif:    "elif",
	KindElse:    "else",
	KindFor:     "for",
	KindLabel:   "label",
	KindGoto:    "goto",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// ParseKind looks a kind up by its name
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return KindInvalid
}

// HasText reports whether nodes of this kind carry literal text
func (k Kind) HasText() bool {
	switch k {
	case KindImport, KindStruct, KindFunc, KindIdent, KindType, KindInt, KindFloat,
		KindChar, KindString, KindDeref, KindCall, KindLabel, KindGoto:
		return true
	}
	return false
}

// IsBinary reports whether the kind is a two-operand operator
func (k Kind) IsBinary() bool {
	return k >= KindAdd && k <= KindGe
}

// IsComparison reports whether the kind is a comparison operator
func (k Kind) IsComparison() bool {
	return k >= KindEq && k <= KindGe
}

// NoParent is the parent index of the root
const NoParent = -1

// Node is one syntax tree node
type Node struct {
	Kind     Kind
	Text     string
	Children []int
	Parent   int
	Seq      int // left-to-right order, assigned when the node is added
}

// Tree owns every node. Index 0 is the root once one is added.
type Tree struct {
	Nodes []Node
}

// NewTree creates a tree with a program root
func NewTree() *Tree {
	t := &Tree{}
	t.Add(NoParent, KindProgram, "")
	return t
}

// Root is the index of the program node
func (t *Tree) Root() int {
	return 0
}

// Add appends a node as the last child of parent and returns its index.
// Nodes must be added in pre-order for sequence numbers to run left to right.
func (t *Tree) Add(parent int, kind Kind, text string) int {
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Kind:   kind,
		Text:   text,
		Parent: parent,
		Seq:    id,
	})
	if parent != NoParent {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

// Node returns the node at index id
func (t *Tree) Node(id int) *Node {
	return &t.Nodes[id]
}

// Kind returns the kind of the node at index id
func (t *Tree) Kind(id int) Kind {
	return t.Nodes[id].Kind
}

// Text returns the literal text of the node at index id
func (t *Tree) Text(id int) string {
	return t.Nodes[id].Text
}

// Children returns the child indices of id
func (t *Tree) Children(id int) []int {
	return t.Nodes[id].Children
}

// Child returns the i-th child of id, or -1 if there is none
func (t *Tree) Child(id, i int) int {
	children := t.Nodes[id].Children
	if i < 0 || i >= len(children) {
		return -1
	}
	return children[i]
}

// Parent returns the parent index of id (NoParent for the root)
func (t *Tree) Parent(id int) int {
	return t.Nodes[id].Parent
}

// Seq returns the sequence number of id
func (t *Tree) Seq(id int) int {
	return t.Nodes[id].Seq
}

// ChildIndex returns the position of id among its parent's children
func (t *Tree) ChildIndex(id int) int {
	parent := t.Nodes[id].Parent
	if parent == NoParent {
		return -1
	}
	for i, c := range t.Nodes[parent].Children {
		if c == id {
			return i
		}
	}
	return -1
}

// Walk visits id and its descendants in pre-order. Returning false from
// visit skips the node's children.
func (t *Tree) Walk(id int, visit func(id int) bool) {
	if !visit(id) {
		return
	}
	for _, c := range t.Nodes[id].Children {
		t.Walk(c, visit)
	}
}

// FindAll returns every node of the given kind under id, in sequence order
func (t *Tree) FindAll(id int, kind Kind) []int {
	var found []int
	t.Walk(id, func(n int) bool {
		if t.Nodes[n].Kind == kind {
			found = append(found, n)
		}
		return true
	})
	return found
}
