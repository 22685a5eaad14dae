package ast

import (
	"fmt"

	"github.com/rivetvm/rivet/graph"
)

// Arena owns every expression created during one compilation. Expressions
// are created through the New* constructors and destroyed only through
// Remove, which detaches all edges and re-indexes the survivors so
// expression indices stay dense.
//
// An arena is exclusively owned by the compilation that created it and is
// not safe for concurrent use.
type Arena struct {
	exprs []*Expression

	// version increments on every structural mutation. Cached analyses
	// (such as the cycle checker's tags) compare versions to detect
	// staleness.
	version uint64
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Len returns the number of live expressions.
func (a *Arena) Len() int {
	return len(a.exprs)
}

// At returns the expression at the given dense index.
func (a *Arena) At(index int) *Expression {
	return a.exprs[index]
}

// Expressions returns the live expressions in index order. The returned
// slice must not be modified.
func (a *Arena) Expressions() []*Expression {
	return a.exprs
}

// Version returns the current mutation counter.
func (a *Arena) Version() uint64 {
	return a.version
}

// Roots returns every expression without parents, in index order.
func (a *Arena) Roots() []*Expression {
	var roots []*Expression
	for _, e := range a.exprs {
		if len(e.parents) == 0 {
			roots = append(roots, e)
		}
	}
	return roots
}

// CountKind returns the number of live expressions of the given kind.
func (a *Arena) CountKind(k Kind) int {
	n := 0
	for _, e := range a.exprs {
		if e.kind == k {
			n++
		}
	}
	return n
}

func (a *Arena) add(e *Expression) *Expression {
	e.index = len(a.exprs)
	a.exprs = append(a.exprs, e)
	a.version++
	return e
}

// NewBlock creates a Block expression.
func (a *Arena) NewBlock(name string) *Expression {
	return a.add(&Expression{kind: Block, name: name})
}

// NewEntry creates an Entry expression for an event node. The name is the
// event name; entries sharing a name are merged by folding.
func (a *Arena) NewEntry(node *graph.Node, name string) *Expression {
	return a.add(&Expression{kind: Entry, name: name, node: node})
}

// NewCallExternal creates a CallExternal expression for a call node.
func (a *Arena) NewCallExternal(node *graph.Node) *Expression {
	return a.add(&Expression{kind: CallExternal, name: node.Name(), node: node})
}

// NewNoOp creates a NoOp expression for a reroute node.
func (a *Arena) NewNoOp(node *graph.Node) *Expression {
	return a.add(&Expression{kind: NoOp, name: node.Name(), node: node})
}

// NewVar creates a Var expression for a pin.
func (a *Arena) NewVar(pin *graph.Pin) *Expression {
	return a.add(&Expression{kind: Var, name: pin.Path(), pin: pin})
}

// NewLiteral creates a Literal expression for a pin's default value.
func (a *Arena) NewLiteral(pin *graph.Pin) *Expression {
	return a.add(&Expression{kind: Literal, name: pin.Path(), pin: pin})
}

// NewAssign creates an Assign expression for a source/target pin pair.
func (a *Arena) NewAssign(source, target *graph.Pin) *Expression {
	name := fmt.Sprintf("%s -> %s", source.Path(), target.Path())
	return a.add(&Expression{kind: Assign, name: name, sourcePin: source, targetPin: target})
}

// NewCopy creates a Copy expression for a source/target pin pair whose
// types differ and require conversion.
func (a *Arena) NewCopy(source, target *graph.Pin) *Expression {
	name := fmt.Sprintf("%s -> %s", source.Path(), target.Path())
	return a.add(&Expression{kind: Copy, name: name, sourcePin: source, targetPin: target})
}

// NewCachedValue creates a CachedValue wrapping the given Var and the
// CallExternal that produces it, in that fixed positional order.
func (a *Arena) NewCachedValue(varExpr, callExpr *Expression) *Expression {
	varExpr.mustKind("NewCachedValue", Var)
	callExpr.mustKind("NewCachedValue", CallExternal)
	e := a.add(&Expression{kind: CachedValue, name: varExpr.name})
	a.Link(e, varExpr)
	a.Link(e, callExpr)
	return e
}

// NewExit creates an Exit expression.
func (a *Arena) NewExit() *Expression {
	return a.add(&Expression{kind: Exit})
}

// WrapInCachedValue interposes a CachedValue between a Var and its
// consumers: every parent of varExpr is rewired to the new CachedValue,
// the producing callExpr moves from under the Var to child position 1 of
// the CachedValue, and the Var becomes child position 0.
func (a *Arena) WrapInCachedValue(varExpr, callExpr *Expression) *Expression {
	varExpr.mustKind("WrapInCachedValue", Var)
	callExpr.mustKind("WrapInCachedValue", CallExternal)
	cached := a.add(&Expression{kind: CachedValue, name: varExpr.name})
	a.Redirect(varExpr, cached)
	a.Unlink(varExpr, callExpr)
	a.Link(cached, varExpr)
	a.Link(cached, callExpr)
	return cached
}

// Link appends child to parent's child list and parent to child's parent
// list.
func (a *Arena) Link(parent, child *Expression) {
	a.LinkAt(parent, len(parent.children), child)
}

// LinkAt inserts child at the given position in parent's child list, and
// appends parent to child's parent list. Self-edges are rejected: they
// would break the acyclicity invariant immediately.
func (a *Arena) LinkAt(parent *Expression, position int, child *Expression) {
	if parent == child {
		panic(fmt.Sprintf("self edge on expression %d (%s)", parent.index, parent.kind))
	}
	parent.children = append(parent.children, nil)
	copy(parent.children[position+1:], parent.children[position:])
	parent.children[position] = child
	child.parents = append(child.parents, parent)
	a.version++
}

// Unlink removes one occurrence of the parent/child edge, from both sides.
// Removing an edge that does not exist is a no-op.
func (a *Arena) Unlink(parent, child *Expression) {
	if i := childIndex(parent, child); i >= 0 {
		parent.children = append(parent.children[:i], parent.children[i+1:]...)
	}
	if i := parentIndex(child, parent); i >= 0 {
		child.parents = append(child.parents[:i], child.parents[i+1:]...)
	}
	a.version++
}

// Redirect rewires every parent of from to reference to instead, keeping
// each parent's child ordering intact. Used when a duplicate expression is
// replaced by a canonical one.
func (a *Arena) Redirect(from, to *Expression) {
	for _, parent := range from.parents {
		for i, child := range parent.children {
			if child == from {
				parent.children[i] = to
				to.parents = append(to.parents, parent)
			}
		}
	}
	from.parents = from.parents[:0]
	a.version++
}

// Remove destroys the given expressions: every edge touching them is
// detached and the survivors are re-indexed once, regardless of how many
// expressions were removed.
func (a *Arena) Remove(exprs ...*Expression) {
	if len(exprs) == 0 {
		return
	}
	doomed := make(map[*Expression]bool, len(exprs))
	for _, e := range exprs {
		doomed[e] = true
	}
	for _, e := range exprs {
		for _, parent := range e.parents {
			if !doomed[parent] {
				parent.children = removeAll(parent.children, e)
			}
		}
		for _, child := range e.children {
			if !doomed[child] {
				child.parents = removeAll(child.parents, e)
			}
		}
	}
	kept := a.exprs[:0]
	for _, e := range a.exprs {
		if !doomed[e] {
			e.index = len(kept)
			kept = append(kept, e)
		}
	}
	a.exprs = kept
	a.version++
}

func childIndex(parent, child *Expression) int {
	for i, c := range parent.children {
		if c == child {
			return i
		}
	}
	return -1
}

func parentIndex(child, parent *Expression) int {
	for i, p := range child.parents {
		if p == parent {
			return i
		}
	}
	return -1
}

func removeAll(list []*Expression, e *Expression) []*Expression {
	kept := list[:0]
	for _, x := range list {
		if x != e {
			kept = append(kept, x)
		}
	}
	return kept
}
