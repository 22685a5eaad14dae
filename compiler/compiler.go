// Package compiler turns a node graph into a linear, register-addressed
// bytecode program in two stages.
//
// # Stage 1: expression tree
//
// Parse walks the graph model and produces one expression per relevant
// node, pin and link, wired into a forest of Entry-rooted trees inside an
// arena. The tree is oriented consumer-to-producer: a CallExternal's
// children are the Vars feeding its inputs, a Var's children are the
// Literal, Assign or Copy expressions producing its value. Fold then runs
// a fixed sequence of semantics-preserving rewrite passes: entry merging,
// exit injection, no-op elimination, literal deduplication and
// assignment-chain reduction.
//
// # Stage 2: bytecode
//
// Generate walks each folded Entry in child order and emits operation
// records into a bytecode container: Execute for external calls, Copy for
// converting data moves, Exit to terminate the entry. Assign expressions
// alias storage and emit nothing.
//
// A Compiler owns exactly one arena for one graph. Compiling independent
// graphs in parallel requires independent Compiler values; nothing is
// shared.
package compiler

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rivetvm/rivet/ast"
	"github.com/rivetvm/rivet/errz"
	"github.com/rivetvm/rivet/graph"
	"github.com/rs/zerolog"
)

// Settings holds the three independent folding toggles.
type Settings struct {
	// FoldReroutes removes NoOp expressions, splicing their children into
	// their parents' child lists.
	FoldReroutes bool `toml:"fold_reroutes" json:"fold_reroutes"`

	// FoldAssignments collapses assignment chains through otherwise
	// unused intermediates and drops no-op assignments.
	FoldAssignments bool `toml:"fold_assignments" json:"fold_assignments"`

	// FoldLiterals dedupes literal expressions sharing a declared type
	// and serialized default value.
	FoldLiterals bool `toml:"fold_literals" json:"fold_literals"`
}

// DefaultSettings enables all folding passes.
func DefaultSettings() Settings {
	return Settings{
		FoldReroutes:    true,
		FoldAssignments: true,
		FoldLiterals:    true,
	}
}

// Config holds compiler configuration options.
type Config struct {
	// Settings control the optional folding passes. The zero value
	// disables all of them; use DefaultSettings to enable everything.
	Settings Settings

	// Logger receives debug-level progress events. Defaults to a
	// disabled logger.
	Logger *zerolog.Logger
}

// Compiler holds the compilation context for one graph: the expression
// arena, the subject lookup maps and the cycle checker's cached tags.
// Not safe for concurrent use.
type Compiler struct {
	graph    *graph.Graph
	settings Settings
	log      zerolog.Logger
	arena    *ast.Arena

	// Subject lookups: every traversed node and pin maps to the one
	// expression created for it.
	nodeExprs map[*graph.Node]*ast.Expression
	pinExprs  map[*graph.Pin]*ast.Expression

	// Canonical literals by equality key, used when literal folding is
	// enabled so duplicates are shared at build time.
	literals map[string]*ast.Expression

	// Cycle checker state, valid for one prepared expression at a time.
	prepared      *ast.Expression
	tags          map[*ast.Expression]relation
	preparedAtVer uint64
}

// Parse builds the expression tree for the graph without folding it.
// On a structural error the whole build aborts with a MalformedGraph
// error and no partial tree is exposed.
func Parse(g *graph.Graph, cfg *Config) (*Compiler, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	c := &Compiler{
		graph:     g,
		settings:  cfg.Settings,
		log:       log,
		arena:     ast.NewArena(),
		nodeExprs: make(map[*graph.Node]*ast.Expression),
		pinExprs:  make(map[*graph.Pin]*ast.Expression),
		literals:  make(map[string]*ast.Expression),
	}
	if err := c.parse(); err != nil {
		return nil, err
	}
	c.log.Debug().
		Int("nodes", len(g.Nodes())).
		Int("expressions", c.arena.Len()).
		Msg("parsed graph")
	return c, nil
}

// Compile builds and folds the expression tree for the graph.
func Compile(g *graph.Graph, cfg *Config) (*Compiler, error) {
	c, err := Parse(g, cfg)
	if err != nil {
		return nil, err
	}
	c.Fold()
	return c, nil
}

// Arena returns the expression arena. Callers must treat it as read-only.
func (c *Compiler) Arena() *ast.Arena {
	return c.arena
}

// Settings returns the folding settings in effect.
func (c *Compiler) Settings() Settings {
	return c.settings
}

// ExpressionForNode returns the expression created for a graph node, or
// nil if the node was not traversed.
func (c *Compiler) ExpressionForNode(n *graph.Node) *ast.Expression {
	return c.nodeExprs[n]
}

// ExpressionForPin returns the Var expression created for a graph pin, or
// nil if the pin was not traversed.
func (c *Compiler) ExpressionForPin(p *graph.Pin) *ast.Expression {
	return c.pinExprs[p]
}

// Entries returns the Entry expressions in arena order.
func (c *Compiler) Entries() []*ast.Expression {
	var entries []*ast.Expression
	for _, e := range c.arena.Expressions() {
		if e.Kind() == ast.Entry {
			entries = append(entries, e)
		}
	}
	return entries
}

// parse performs the two-phase graph traversal: first the execution
// chains rooted at each event node, then one assignment per data link.
func (c *Compiler) parse() error {
	var errs *multierror.Error

	for _, node := range c.graph.Nodes() {
		if node.Kind() != graph.Event {
			continue
		}
		if node.Name() == "" {
			errs = multierror.Append(errs, fmt.Errorf("event node has no name"))
			continue
		}
		entry := c.arena.NewEntry(node, node.Name())
		c.nodeExprs[node] = entry
		if err := c.walkExecChain(entry, node.ExecOut(), map[*graph.Node]bool{node: true}); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	// Links into pure nodes can appear before anything demands the node.
	// Defer them until another link materializes the consumer; whatever is
	// left after a fixpoint feeds pure nodes nothing demands.
	var pending []*graph.Link
	for _, link := range c.graph.Links() {
		if !link.Source().IsExec() {
			pending = append(pending, link)
		}
	}
	for len(pending) > 0 {
		var deferred []*graph.Link
		for _, link := range pending {
			target := link.Target()
			if _, ok := c.pinExprs[target]; !ok && target.Node().IsPure() {
				deferred = append(deferred, link)
				continue
			}
			if err := c.wireDataLink(link.Source(), target); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if len(deferred) == len(pending) {
			break
		}
		pending = deferred
	}

	if err := c.checkAcyclic(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return errz.New(errz.KindMalformedGraph, "graph %q cannot be compiled", c.graph.Name()).WithCause(err)
	}
	return nil
}

// checkAcyclic verifies that no wired data dependency loops back on
// itself. Execution loops are caught while walking exec chains, but data
// links between pure nodes can close a cycle that only becomes visible
// once all of them are wired, so every expression gets a path-marking
// depth-first pass. Shared subtrees (folded literals, multi-consumer
// pure results) are revisited off-path and are fine.
func (c *Compiler) checkAcyclic() error {
	const (
		onPath = 1
		done   = 2
	)
	state := make(map[*ast.Expression]int, c.arena.Len())
	var visit func(e *ast.Expression) error
	visit = func(e *ast.Expression) error {
		switch state[e] {
		case onPath:
			return fmt.Errorf("data links form a cycle through %q", e.Name())
		case done:
			return nil
		}
		state[e] = onPath
		for _, child := range e.Children() {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[e] = done
		return nil
	}
	for _, e := range c.arena.Expressions() {
		if err := visit(e); err != nil {
			return err
		}
	}
	return nil
}

// walkExecChain follows execution links from the given output pin,
// appending one expression per reached node as children of parent. A
// reroute's NoOp becomes the parent of everything downstream of it, so
// no-op folding can later splice the downstream nodes into its place.
func (c *Compiler) walkExecChain(parent *ast.Expression, from *graph.Pin, visited map[*graph.Node]bool) error {
	if from == nil {
		return nil
	}
	for _, target := range c.graph.LinkedTargets(from) {
		node := target.Node()
		if visited[node] {
			return fmt.Errorf("execution loop through node %q", node.Name())
		}
		visited[node] = true

		switch node.Kind() {
		case graph.Call:
			call := c.arena.NewCallExternal(node)
			c.nodeExprs[node] = call
			c.arena.Link(parent, call)
			c.buildInputVars(call, node)
			if err := c.walkExecChain(parent, node.ExecOut(), visited); err != nil {
				return err
			}
		case graph.Reroute:
			noop := c.arena.NewNoOp(node)
			c.nodeExprs[node] = noop
			c.arena.Link(parent, noop)
			if err := c.walkExecChain(noop, node.ExecOut(), visited); err != nil {
				return err
			}
		default:
			return fmt.Errorf("execution link targets %s node %q", node.Kind(), node.Name())
		}
	}
	return nil
}

// buildInputVars creates one Var per data input pin of the node, linked
// as children of the call in pin order, plus a Literal child for every
// pin carrying a constant default.
func (c *Compiler) buildInputVars(call *ast.Expression, node *graph.Node) {
	for _, pin := range node.Pins() {
		if pin.IsExec() || pin.Direction() != graph.Input {
			continue
		}
		v := c.varFor(pin)
		c.arena.Link(call, v)
		if pin.HasDefault() && c.graph.LinkedSource(pin) == nil {
			c.arena.Link(v, c.literalFor(pin))
		}
	}
}

// varFor returns the Var expression for a pin, creating it on first use.
// Pins are visited at most once.
func (c *Compiler) varFor(pin *graph.Pin) *ast.Expression {
	if v, ok := c.pinExprs[pin]; ok {
		return v
	}
	v := c.arena.NewVar(pin)
	c.pinExprs[pin] = v
	return v
}

// literalFor returns a Literal expression for the pin's default value.
// When literal folding is enabled, pins sharing a declared type and
// serialized default reuse one canonical expression from the start.
func (c *Compiler) literalFor(pin *graph.Pin) *ast.Expression {
	if !c.settings.FoldLiterals {
		return c.arena.NewLiteral(pin)
	}
	key := literalKey(pin)
	if lit, ok := c.literals[key]; ok {
		return lit
	}
	lit := c.arena.NewLiteral(pin)
	c.literals[key] = lit
	return lit
}

func literalKey(pin *graph.Pin) string {
	return pin.Type() + "\x00" + pin.DefaultValue()
}

// wireDataLink creates the Assign (same types) or Copy (differing types)
// expression for one data link and wires it between the target and source
// Vars. The expression also becomes a child of the target's owning block,
// positioned before the consuming call, so generation emits conversions
// in execution order.
func (c *Compiler) wireDataLink(source, target *graph.Pin) error {
	tgtVar, ok := c.pinExprs[target]
	if !ok {
		switch {
		case target.Node().Kind() == graph.Reroute:
			tgtVar = c.rerouteVar(target.Node())
		case target.Node().IsPure():
			// The consumer is a pure node nothing demands; the link is
			// not part of the program.
			return nil
		default:
			return fmt.Errorf("link target %s belongs to no traversed expression", target.Path())
		}
	}

	srcNode := source.Node()
	var srcVar *ast.Expression
	if srcNode.Kind() == graph.Reroute && !source.IsExec() {
		srcVar = c.rerouteVar(srcNode)
	} else {
		if srcNode.IsPure() {
			c.materializePure(srcNode)
		} else if c.nodeExprs[srcNode] == nil {
			return fmt.Errorf("link source %s belongs to a node that never executes", source.Path())
		}
		srcVar = c.varFor(source)
		if producer := c.nodeExprs[srcNode]; producer != nil && producer.Kind() == ast.CallExternal && srcVar.NumChildren() == 0 {
			// Wire the producing call below its output Var so dependency
			// queries see the full chain.
			c.arena.Link(srcVar, producer)
		}
	}

	var edge *ast.Expression
	if source.Type() == target.Type() {
		edge = c.arena.NewAssign(source, target)
	} else {
		edge = c.arena.NewCopy(source, target)
	}
	c.arena.Link(tgtVar, edge)
	// A reroute linked to itself denotes one storage on both sides;
	// closing the edge back would self-loop the Var.
	if srcVar != tgtVar {
		c.arena.Link(edge, srcVar)
	}
	c.placeInBlock(edge, target.Node())
	return nil
}

// rerouteVar returns the single Var shared by a reroute node's data pins.
// The node passes its value through untouched, so both sides denote the
// same storage; assignment folding later collapses the chains this
// sharing produces.
func (c *Compiler) rerouteVar(node *graph.Node) *ast.Expression {
	var v *ast.Expression
	for _, pin := range node.Pins() {
		if pin.IsExec() {
			continue
		}
		if existing, ok := c.pinExprs[pin]; ok {
			return existing
		}
		if v == nil {
			v = c.arena.NewVar(pin)
		}
		c.pinExprs[pin] = v
	}
	return v
}

// materializePure creates the CallExternal and input Vars for a pure node
// the first time one of its outputs is demanded.
func (c *Compiler) materializePure(node *graph.Node) {
	if c.nodeExprs[node] != nil {
		return
	}
	call := c.arena.NewCallExternal(node)
	c.nodeExprs[node] = call
	c.buildInputVars(call, node)
}

// placeInBlock inserts the edge expression into the consumer's owning
// block, immediately before the consuming call. Pure consumers have no
// block; their conversions are emitted on demand during generation.
func (c *Compiler) placeInBlock(edge *ast.Expression, consumer *graph.Node) {
	call := c.nodeExprs[consumer]
	if call == nil || consumer.IsPure() {
		return
	}
	for _, parent := range call.Parents() {
		// NoOps on the execution path hold their downstream nodes as
		// children until folding splices them away, so they count as
		// placement containers too.
		if !parent.IsBlock() && parent.Kind() != ast.NoOp {
			continue
		}
		for i, child := range parent.Children() {
			if child == call {
				c.arena.LinkAt(parent, i, edge)
				return
			}
		}
	}
}
