package ast

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestReadFunction(t *testing.T) {
	tree, err := Read(`
(func add (params (ident a i64) (ident b i64)) i64
  (block (ret (add a b))))`)
	be.Err(t, err, nil)

	fn := tree.Child(tree.Root(), 0)
	be.Equal(t, tree.Kind(fn), KindFunc)
	be.Equal(t, tree.Text(fn), "add")
	be.Equal(t, len(tree.Children(fn)), 3)

	params := tree.Child(fn, 0)
	be.Equal(t, tree.Kind(params), KindParams)
	a := tree.Child(params, 0)
	be.Equal(t, tree.Text(a), "a")
	be.Equal(t, tree.Kind(tree.Child(a, 0)), KindType)
	be.Equal(t, tree.Text(tree.Child(a, 0)), "i64")

	ret := tree.Child(fn, 1)
	be.Equal(t, tree.Kind(ret), KindType)

	body := tree.Child(fn, 2)
	be.Equal(t, tree.Kind(body), KindBlock)
	plus := tree.Child(tree.Child(body, 0), 0)
	be.Equal(t, tree.Kind(plus), KindAdd)
	be.Equal(t, tree.Kind(tree.Child(plus, 0)), KindIdent)
}

func TestParentAndSeq(t *testing.T) {
	tree, err := Read(`(program (func main (params) i64 (block (ret 1))))`)
	be.Err(t, err, nil)

	be.Equal(t, tree.Parent(tree.Root()), NoParent)
	for id := range tree.Nodes {
		be.Equal(t, tree.Seq(id), id)
		for _, c := range tree.Children(id) {
			be.Equal(t, tree.Parent(c), id)
			be.True(t, tree.Seq(c) > tree.Seq(id))
		}
	}
}

func TestShorthandLiterals(t *testing.T) {
	tree, err := Read(`(call f 1 2.5 "s" x)`)
	be.Err(t, err, nil)
	call := tree.Child(tree.Root(), 0)
	be.Equal(t, tree.Kind(tree.Child(call, 0)), KindInt)
	be.Equal(t, tree.Kind(tree.Child(call, 1)), KindFloat)
	be.Equal(t, tree.Kind(tree.Child(call, 2)), KindString)
	be.Equal(t, tree.Kind(tree.Child(call, 3)), KindIdent)
	be.Equal(t, tree.ChildIndex(tree.Child(call, 2)), 2)
	be.Equal(t, tree.Child(call, 9), -1)
}

func TestFormat(t *testing.T) {
	tree, err := Read(`(import "libm.so") (func main (params) i64 (block (ret (mul 3 4))))`)
	be.Err(t, err, nil)
	be.Equal(t, tree.String(),
		`(program (import "libm.so") (func main (params) (type i64) (block (ret (mul (int 3) (int 4))))))`)

	again, err := Read(tree.String())
	be.Err(t, err, nil)
	be.Equal(t, again.String(), tree.String())
}

func TestReadErrors(t *testing.T) {
	_, err := Read(`(frobnicate 1)`)
	be.Err(t, err, "unknown node kind")

	_, err = Read(`(func)`)
	be.Err(t, err, "needs a name")

	_, err = Read(`((add) 1)`)
	be.Err(t, err, "must start with a node kind")
}

func TestFindAll(t *testing.T) {
	tree, err := Read(`(import "a") (func f (params) none (block (import "b") (ret)))`)
	be.Err(t, err, nil)
	imports := tree.FindAll(tree.Root(), KindImport)
	be.Equal(t, len(imports), 2)
	be.Equal(t, tree.Text(imports[0]), "a")
	be.Equal(t, tree.Text(imports[1]), "b")
}

func TestKindNames(t *testing.T) {
	for k := KindProgram; k <= KindGoto; k++ {
		be.Equal(t, ParseKind(k.String()), k)
	}
	be.True(t, KindAdd.IsBinary())
	be.True(t, KindGe.IsComparison())
	be.True(t, !KindMod.IsComparison())
}
