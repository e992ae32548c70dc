package rewrite

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/broady/typeof/internal/literal"
	"github.com/broady/typeof/typeinfo"
)

// Action is what Apply does with a node.
type Action int

const (
	Keep    Action = iota // leave the node as written
	Erase                 // remove the node
	Replace               // substitute Literal for the node
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Erase:
		return "erase"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// Edit is the decision for one sentinel import or call.
type Edit struct {
	Action Action

	// Node is an *ast.ImportSpec or an *ast.CallExpr.
	Node ast.Node

	// Literal is the replacement source text for Replace.
	Literal []byte
}

// Describer builds the descriptor of a call's type argument. t is nil when
// the argument could not be typed.
type Describer interface {
	Describe(t types.Type) typeinfo.Type
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(t types.Type) typeinfo.Type

func (f DescriberFunc) Describe(t types.Type) typeinfo.Type { return f(t) }

// Plan classifies the sentinel sites of f. Calls are visited before their
// arguments, and the arguments of a replaced call are not visited. A
// sentinel import is erased only when every reference to it lies inside a
// replaced call; otherwise it is kept. Non-sentinel nodes produce no edit.
//
// Replacement literals qualify typeinfo identifiers with qualifier.
func Plan(m *Matcher, f *ast.File, d Describer, qualifier string) []Edit {
	var edits []Edit
	var spans [][2]token.Pos

	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		typeArg, ok := m.SentinelCall(call)
		if !ok {
			return true
		}
		desc := typeinfo.Type{}
		if typeArg != nil {
			desc = d.Describe(m.TypeOf(typeArg))
		}
		edits = append(edits, Edit{
			Action:  Replace,
			Node:    call,
			Literal: literal.Source(desc, qualifier),
		})
		spans = append(spans, [2]token.Pos{call.Pos(), call.End()})
		return false
	})

	refs := m.references(f)
	for _, spec := range f.Imports {
		if !m.IsSentinelImport(spec) {
			continue
		}
		action := Erase
		for _, id := range refs {
			if !within(id.Pos(), spans) {
				action = Keep
				break
			}
		}
		edits = append(edits, Edit{Action: action, Node: spec})
	}
	return edits
}

func within(pos token.Pos, spans [][2]token.Pos) bool {
	for _, s := range spans {
		if s[0] <= pos && pos < s[1] {
			return true
		}
	}
	return false
}

// Changes reports whether any edit in plan alters the file.
func Changes(plan []Edit) bool {
	for _, e := range plan {
		if e.Action != Keep {
			return true
		}
	}
	return false
}
