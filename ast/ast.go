// Package ast defines the expression tree built from a node graph by the
// rivet compiler. Expressions live in an Arena and reference each other
// through ordered parent and child lists, forming a directed acyclic
// multigraph. The relation is maintained bidirectionally: adding a parent
// edge implies adding the symmetric child edge.
package ast

import (
	"fmt"

	"github.com/rivetvm/rivet/errz"
	"github.com/rivetvm/rivet/graph"
)

// Kind discriminates the expression variants.
type Kind uint8

const (
	// Block is a container whose children execute in child order.
	Block Kind = iota

	// Entry is a Block representing an event entry point. Execution of a
	// compiled program starts at an entry.
	Entry

	// CallExternal invokes an external function identified by the
	// referenced graph node's function index.
	CallExternal

	// NoOp passes through without effect. Produced for reroute nodes and
	// removed by folding when enabled.
	NoOp

	// Var represents the runtime value of one graph pin.
	Var

	// Literal represents a constant default value of a graph pin.
	Literal

	// Assign aliases a target pin's storage to a source pin's value.
	Assign

	// Copy converts a source pin's value into a target pin's storage.
	// Used instead of Assign when the pin types differ.
	Copy

	// CachedValue wraps a Var and the CallExternal that produces it, in
	// fixed positional roles, so the call executes once for many readers.
	CachedValue

	// Exit terminates execution of an entry's block.
	Exit
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Block:
		return "Block"
	case Entry:
		return "Entry"
	case CallExternal:
		return "CallExternal"
	case NoOp:
		return "NoOp"
	case Var:
		return "Var"
	case Literal:
		return "Literal"
	case Assign:
		return "Assign"
	case Copy:
		return "Copy"
	case CachedValue:
		return "CachedValue"
	case Exit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// Expression is one node of the compiled dataflow tree. Expressions are
// owned by the Arena that created them and are never freed individually.
type Expression struct {
	kind     Kind
	name     string
	index    int
	parents  []*Expression
	children []*Expression

	// Kind-specific payloads. CallExternal, Entry and NoOp reference a
	// graph node; Var and Literal reference a pin; Assign and Copy
	// reference a source and target pin pair.
	node      *graph.Node
	pin       *graph.Pin
	sourcePin *graph.Pin
	targetPin *graph.Pin
}

// Kind returns the expression kind.
func (e *Expression) Kind() Kind {
	return e.kind
}

// IsBlock returns true for Block and the Block-derived Entry kind.
func (e *Expression) IsBlock() bool {
	return e.kind == Block || e.kind == Entry
}

// Name returns the expression's identifier. May be empty. For Entry
// expressions this is the event name.
func (e *Expression) Name() string {
	return e.name
}

// Index returns the expression's position within its arena. Indices stay
// dense: removals re-index every remaining expression.
func (e *Expression) Index() int {
	return e.index
}

// Parents returns the ordered parent list. The returned slice must not be
// modified.
func (e *Expression) Parents() []*Expression {
	return e.parents
}

// Children returns the ordered child list. The returned slice must not be
// modified.
func (e *Expression) Children() []*Expression {
	return e.children
}

// NumParents returns the number of parent edges.
func (e *Expression) NumParents() int {
	return len(e.parents)
}

// NumChildren returns the number of child edges.
func (e *Expression) NumChildren() int {
	return len(e.children)
}

// Node returns the referenced graph node. Panics unless the expression is
// an Entry, CallExternal or NoOp: kind mismatches are defects in the
// caller and fail fast.
func (e *Expression) Node() *graph.Node {
	e.mustKind("Node", Entry, CallExternal, NoOp)
	return e.node
}

// Pin returns the referenced graph pin. Panics unless the expression is a
// Var or Literal.
func (e *Expression) Pin() *graph.Pin {
	e.mustKind("Pin", Var, Literal)
	return e.pin
}

// SourcePin returns the source of an Assign or Copy. Panics otherwise.
func (e *Expression) SourcePin() *graph.Pin {
	e.mustKind("SourcePin", Assign, Copy)
	return e.sourcePin
}

// TargetPin returns the target of an Assign or Copy. Panics otherwise.
func (e *Expression) TargetPin() *graph.Pin {
	e.mustKind("TargetPin", Assign, Copy)
	return e.targetPin
}

// RetargetSource repoints an Assign or Copy at a new source pin. Used by
// assignment folding, which collapses chains by retargeting a surviving
// expression instead of creating a new one.
func (e *Expression) RetargetSource(pin *graph.Pin) {
	e.mustKind("RetargetSource", Assign, Copy)
	e.sourcePin = pin
	e.name = fmt.Sprintf("%s -> %s", pin.Path(), e.targetPin.Path())
}

// VarChild returns child 0 of a CachedValue: the Var being cached.
// Panics on any other kind.
func (e *Expression) VarChild() *Expression {
	e.mustKind("VarChild", CachedValue)
	return e.children[0]
}

// CallChild returns child 1 of a CachedValue: the CallExternal producing
// the cached value. Panics on any other kind.
func (e *Expression) CallChild() *Expression {
	e.mustKind("CallChild", CachedValue)
	return e.children[1]
}

func (e *Expression) mustKind(accessor string, kinds ...Kind) {
	for _, k := range kinds {
		if e.kind == k {
			return
		}
	}
	panic(errz.New(errz.KindInvalidDowncast,
		"%s called on %s expression", accessor, e.kind).WithSubject(e.name))
}

// Walk traverses the subtree rooted at e in depth-first preorder, calling
// fn for each expression. Expressions reachable along multiple paths are
// visited once. Returning false from fn prunes the subtree below the
// current expression.
func Walk(e *Expression, fn func(*Expression) bool) {
	seen := make(map[*Expression]bool)
	var visit func(x *Expression)
	visit = func(x *Expression) {
		if seen[x] {
			return
		}
		seen[x] = true
		if !fn(x) {
			return
		}
		for _, child := range x.children {
			visit(child)
		}
	}
	visit(e)
}
