package compiler

import "github.com/rivetvm/rivet/ast"

// Fold runs the folding passes over the arena in their fixed order. Entry
// merging and exit injection always run; the remaining passes honor the
// compiler settings. Each pass removes its expressions in one batch so
// the arena re-indexes once per pass.
func (c *Compiler) Fold() {
	c.foldEntries()
	c.injectExitsToEntries()
	if c.settings.FoldReroutes {
		c.foldNoOps()
	}
	if c.settings.FoldLiterals {
		c.foldLiterals()
	}
	if c.settings.FoldAssignments {
		c.foldAssignments()
	}
	c.log.Debug().Int("expressions", c.arena.Len()).Msg("folded expression tree")
}

// foldEntries merges all Entry expressions sharing an event name into the
// first one discovered, concatenating their children in discovery order.
// Multiple graph sub-networks implementing the same event must execute as
// one sequential block.
func (c *Compiler) foldEntries() {
	canonical := make(map[string]*ast.Expression)
	var duplicates []*ast.Expression

	for _, e := range c.arena.Expressions() {
		if e.Kind() != ast.Entry {
			continue
		}
		first, ok := canonical[e.Name()]
		if !ok {
			canonical[e.Name()] = e
			continue
		}
		children := append([]*ast.Expression{}, e.Children()...)
		for _, child := range children {
			c.arena.Unlink(e, child)
			c.arena.Link(first, child)
		}
		duplicates = append(duplicates, e)
	}
	if len(duplicates) > 0 {
		c.arena.Remove(duplicates...)
		c.log.Debug().Int("merged", len(duplicates)).Msg("folded duplicate entries")
	}
}

// injectExitsToEntries appends an Exit as the last child of every entry
// that does not already end with one, so every executable path terminates
// explicitly.
func (c *Compiler) injectExitsToEntries() {
	for _, e := range c.arena.Expressions() {
		if e.Kind() != ast.Entry {
			continue
		}
		children := e.Children()
		if n := len(children); n > 0 && children[n-1].Kind() == ast.Exit {
			continue
		}
		c.arena.Link(e, c.arena.NewExit())
	}
}

// foldNoOps removes every NoOp, splicing its children into each parent's
// child list at the position the NoOp occupied. Sibling order around the
// splice point is preserved.
func (c *Compiler) foldNoOps() {
	var noops []*ast.Expression
	for _, e := range c.arena.Expressions() {
		if e.Kind() == ast.NoOp {
			noops = append(noops, e)
		}
	}
	for _, noop := range noops {
		children := append([]*ast.Expression{}, noop.Children()...)
		for _, parent := range append([]*ast.Expression{}, noop.Parents()...) {
			// Insert the children immediately before each occurrence of
			// the NoOp; removal then deletes the NoOp itself, leaving
			// the children in its position.
			for i := 0; i < len(parent.Children()); i++ {
				if parent.Children()[i] != noop {
					continue
				}
				for j, child := range children {
					c.arena.LinkAt(parent, i+j, child)
				}
				i += len(children)
			}
		}
	}
	if len(noops) > 0 {
		c.arena.Remove(noops...)
		c.log.Debug().Int("removed", len(noops)).Msg("folded no-ops")
	}
}

// foldLiterals groups literals by declared pin type and serialized
// default value, keeps the first of each group and rewires every other
// member's parents to the canonical one. Running it twice changes
// nothing: after one pass every group has a single member.
func (c *Compiler) foldLiterals() {
	canonical := make(map[string]*ast.Expression)
	var duplicates []*ast.Expression

	for _, e := range c.arena.Expressions() {
		if e.Kind() != ast.Literal {
			continue
		}
		key := literalKey(e.Pin())
		first, ok := canonical[key]
		if !ok {
			canonical[key] = e
			continue
		}
		c.arena.Redirect(e, first)
		duplicates = append(duplicates, e)
	}
	if len(duplicates) > 0 {
		c.arena.Remove(duplicates...)
		c.log.Debug().Int("removed", len(duplicates)).Msg("folded duplicate literals")
	}
	// Build-time literal reuse references may now be stale.
	for key := range c.literals {
		if canon, ok := canonical[key]; ok {
			c.literals[key] = canon
		} else {
			delete(c.literals, key)
		}
	}
}

// foldAssignments reduces assignment chains and removes no-op
// assignments. A chain A -> B -> C collapses only when the intermediate
// Var B has exactly one consumer and one producer; the surviving Assign
// is retargeted rather than recreated. Afterwards, any Var produced by a
// pure call and consumed more than once is wrapped in a CachedValue so
// the call executes exactly once.
func (c *Compiler) foldAssignments() {
	doomed := make(map[*ast.Expression]bool)

	for _, e := range c.arena.Expressions() {
		if doomed[e] || e.Kind() != ast.Assign {
			continue
		}
		// Drop assignments whose source and target denote the same
		// storage already.
		if c.pinExprs[e.SourcePin()] == c.pinExprs[e.TargetPin()] {
			doomed[e] = true
			continue
		}
		for {
			mid := assignSourceVar(e)
			if mid == nil || doomed[mid] {
				break
			}
			// The intermediate collapses only when this assignment is
			// its sole consumer and a single Assign its sole producer.
			if mid.NumParents() != 1 || mid.NumChildren() != 1 {
				break
			}
			producer := mid.Children()[0]
			if producer.Kind() != ast.Assign || doomed[producer] {
				break
			}
			next := assignSourceVar(producer)
			if next == nil {
				break
			}
			e.RetargetSource(producer.SourcePin())
			c.arena.Unlink(e, mid)
			c.arena.Link(e, next)
			doomed[mid] = true
			doomed[producer] = true
		}
	}

	if len(doomed) > 0 {
		removals := make([]*ast.Expression, 0, len(doomed))
		for e := range doomed {
			removals = append(removals, e)
		}
		c.arena.Remove(removals...)
		c.log.Debug().Int("removed", len(removals)).Msg("folded assignments")
	}

	c.cachePureResults()
}

// cachePureResults wraps multi-consumer pure call results in CachedValue
// expressions. This is the only folding step that creates expressions.
func (c *Compiler) cachePureResults() {
	var candidates []*ast.Expression
	for _, e := range c.arena.Expressions() {
		if e.Kind() != ast.Var || e.NumParents() < 2 {
			continue
		}
		if producer := pureProducer(e); producer != nil {
			candidates = append(candidates, e)
		}
	}
	for _, v := range candidates {
		c.arena.WrapInCachedValue(v, pureProducer(v))
		c.log.Debug().Str("var", v.Name()).Msg("cached pure call result")
	}
}

// assignSourceVar returns the Var (or nil) feeding an Assign expression.
func assignSourceVar(assign *ast.Expression) *ast.Expression {
	for _, child := range assign.Children() {
		if child.Kind() == ast.Var {
			return child
		}
	}
	return nil
}

// pureProducer returns the pure CallExternal child producing a Var's
// value, or nil.
func pureProducer(v *ast.Expression) *ast.Expression {
	for _, child := range v.Children() {
		if child.Kind() == ast.CallExternal && child.Node().IsPure() {
			return child
		}
	}
	return nil
}
