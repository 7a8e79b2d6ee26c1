// Package golden reads compiler test cases out of Markdown documents and
// checks them against the compiler
package golden

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FenceTree is the language of the fence holding the program tree
const FenceTree = "wist-tree"

// AssertionType is the language of an assertion fence
type AssertionType string

const (
	AssertionExecute      AssertionType = "execute"       // value returned by main
	AssertionCompileError AssertionType = "compile-error" // error kind name
	AssertionIR           AssertionType = "ir"            // listing of main
	AssertionStdout       AssertionType = "stdout"        // console output
	AssertionInput        AssertionType = "input"         // console input, not checked
)

// Assertion is one expectation of a test case
type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// Case is one "Test: name" section of a document
type Case struct {
	Name       string
	Tree       string
	Input      string
	Line       int
	Assertions []Assertion
}

// ReadFile extracts the test cases of a Markdown file
func ReadFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Extract(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Extract parses a Markdown document and returns its test cases. Fences
// without a language are ignored; any other fence must belong to a test.
func Extract(markdown string) ([]Case, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case

	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Tree == "" {
			return fmt.Errorf("test '%s' has no %s fence", current.Name, FenceTree)
		}
		if len(current.Assertions) == 0 {
			return fmt.Errorf("test '%s' has no assertion fences", current.Name)
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			name, ok := strings.CutPrefix(heading, "Test: ")
			if !ok {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{Name: strings.TrimSpace(name), Line: lineOf(n, source)}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			if language == "" {
				return ast.WalkContinue, nil
			}
			line := lineOf(n, source)
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test", line, language)
			}
			content := strings.TrimRight(fenceContent(n, source), "\n")
			switch AssertionType(language) {
			case AssertionInput:
				current.Input = content + "\n"
			case AssertionExecute, AssertionCompileError, AssertionIR, AssertionStdout:
				current.Assertions = append(current.Assertions, Assertion{
					Type:    AssertionType(language),
					Content: content,
					Line:    line,
				})
			default:
				if language != FenceTree {
					return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, language, current.Name)
				}
				if current.Tree != "" {
					return ast.WalkStop, fmt.Errorf("line %d: test '%s' has more than one %s fence", line, current.Name, FenceTree)
				}
				current.Tree = content
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line a block starts on
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
