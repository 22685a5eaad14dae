package compiler

import (
	"fmt"

	"github.com/rivetvm/rivet/ast"
	"github.com/rivetvm/rivet/errz"
	"github.com/rivetvm/rivet/graph"
)

// relation tags an expression's position relative to the prepared one.
type relation uint8

const (
	unknownRel relation = iota
	selfRel
	parentRel
	childRel
)

// PrepareCycleChecking tags every expression reachable from the pin's
// expression: strict ancestors as parents, strict descendants as
// children, the expression itself as self. The tags stay cached until the
// next PrepareCycleChecking call and make each subsequent CanLink query
// O(1). Only one preparation is active at a time.
func (c *Compiler) PrepareCycleChecking(pin *graph.Pin) error {
	e := c.exprForPin(pin)
	if e == nil {
		return errz.New(errz.KindCycleDetected,
			"pin %s has no expression to prepare", pin.Path())
	}
	c.prepared = e
	c.retag()
	return nil
}

// exprForPin resolves a pin to its Var expression, falling back to the
// owning node's expression for pins never demanded by a consumer (such
// as unconsumed outputs).
func (c *Compiler) exprForPin(pin *graph.Pin) *ast.Expression {
	if e := c.pinExprs[pin]; e != nil {
		return e
	}
	return c.nodeExprs[pin.Node()]
}

func (c *Compiler) retag() {
	tags := map[*ast.Expression]relation{c.prepared: selfRel}
	var up func(e *ast.Expression)
	up = func(e *ast.Expression) {
		for _, p := range e.Parents() {
			if tags[p] == unknownRel {
				tags[p] = parentRel
				up(p)
			}
		}
	}
	var down func(e *ast.Expression)
	down = func(e *ast.Expression) {
		for _, ch := range e.Children() {
			if tags[ch] == unknownRel {
				tags[ch] = childRel
				down(ch)
			}
		}
	}
	up(c.prepared)
	down(c.prepared)
	c.tags = tags
	c.preparedAtVer = c.arena.Version()
}

// CanLink reports whether a new link from source to target could be
// accepted without creating a cycle or violating a structural
// precondition. It never mutates the tree; rejections are expected and
// cheap. Valid after PrepareCycleChecking was called on one of the two
// endpoints.
//
// The tree is oriented consumer-to-producer, so the proposed link would
// add an edge from the target's Var down to the source's Var. The cached
// tags prove a cycle when the source is an ancestor-or-self of the
// prepared expression and the target a descendant-or-self: the new edge
// would then close a path from the source back to itself.
func (c *Compiler) CanLink(source, target *graph.Pin) (bool, string) {
	if source == target {
		return false, "source and target are the same pin"
	}
	if source.Direction() != graph.Output {
		return false, fmt.Sprintf("%s is not an output pin", source.Path())
	}
	if target.Direction() != graph.Input {
		return false, fmt.Sprintf("%s is not an input pin", target.Path())
	}
	if source.IsExec() != target.IsExec() {
		return false, fmt.Sprintf("%s and %s mix execution and data", source.Path(), target.Path())
	}
	if c.prepared == nil {
		return false, "PrepareCycleChecking has not been called"
	}
	if c.preparedAtVer != c.arena.Version() {
		c.retag()
	}
	srcTag := c.tags[c.exprForPin(source)]
	tgtTag := c.tags[c.exprForPin(target)]
	if (srcTag == parentRel || srcTag == selfRel) && (tgtTag == childRel || tgtTag == selfRel) {
		return false, fmt.Sprintf("linking %s to %s would create a cycle", source.Path(), target.Path())
	}
	return true, ""
}
