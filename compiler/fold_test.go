package compiler

import (
	"testing"

	"github.com/rivetvm/rivet/ast"
	"github.com/rivetvm/rivet/graph"
	"github.com/stretchr/testify/require"
)

func TestFoldEntriesMergesByName(t *testing.T) {
	g := graph.New("test")
	tick1 := g.AddEventNode("Tick")
	a := g.AddCallNode("A", 1)
	mustLink(t, g, tick1.ExecOut(), a.ExecIn())
	tick2 := g.AddEventNode("Tick")
	b := g.AddCallNode("B", 2)
	mustLink(t, g, tick2.ExecOut(), b.ExecIn())

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)

	entries := c.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, 1, c.Arena().CountKind(ast.Entry))

	children := entries[0].Children()
	require.Len(t, children, 3)
	require.Equal(t, c.ExpressionForNode(a), children[0])
	require.Equal(t, c.ExpressionForNode(b), children[1])
	require.Equal(t, ast.Exit, children[2].Kind())
}

func TestExitInjection(t *testing.T) {
	g := graph.New("test")
	g.AddEventNode("Start")

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)
	require.Equal(t, 1, c.Arena().CountKind(ast.Exit))

	entry := c.Entries()[0]
	require.Len(t, entry.Children(), 1)
	require.Equal(t, ast.Exit, entry.Children()[0].Kind())

	// Folding again injects nothing: the entry already terminates.
	c.Fold()
	require.Equal(t, 1, c.Arena().CountKind(ast.Exit))
}

func TestFoldNoOpsSplicesInPlace(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	a := g.AddCallNode("A", 1)
	r := g.AddRerouteNode("knot")
	b := g.AddCallNode("B", 2)
	cc := g.AddCallNode("C", 3)
	mustLink(t, g, start.ExecOut(), a.ExecIn())
	mustLink(t, g, a.ExecOut(), r.ExecIn())
	mustLink(t, g, r.ExecOut(), b.ExecIn())
	mustLink(t, g, b.ExecOut(), cc.ExecIn())

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)
	require.Equal(t, 0, c.Arena().CountKind(ast.NoOp))

	children := c.Entries()[0].Children()
	require.Len(t, children, 4)
	require.Equal(t, c.ExpressionForNode(a), children[0])
	require.Equal(t, c.ExpressionForNode(b), children[1])
	require.Equal(t, c.ExpressionForNode(cc), children[2])
	require.Equal(t, ast.Exit, children[3].Kind())
}

func TestFoldNoOpsDisabled(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	r := g.AddRerouteNode("knot")
	a := g.AddCallNode("A", 1)
	mustLink(t, g, start.ExecOut(), r.ExecIn())
	mustLink(t, g, r.ExecOut(), a.ExecIn())

	c, err := Compile(g, &Config{})
	require.Nil(t, err)
	require.Equal(t, 1, c.Arena().CountKind(ast.NoOp))
}

func TestFoldLiterals(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	f := g.AddCallNode("F", 1)
	pa := f.AddInput("a", "int", "42")
	pb := f.AddInput("b", "int", "42")
	pc := f.AddInput("c", "string", "42")
	mustLink(t, g, start.ExecOut(), f.ExecIn())

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)

	// a and b share one canonical literal; c's type keeps it distinct.
	require.Equal(t, 2, c.Arena().CountKind(ast.Literal))
	litA := c.ExpressionForPin(pa).Children()[0]
	litB := c.ExpressionForPin(pb).Children()[0]
	litC := c.ExpressionForPin(pc).Children()[0]
	require.Equal(t, litA, litB)
	require.NotEqual(t, litA, litC)

	// Idempotent: a second fold changes nothing.
	before := c.Arena().Len()
	c.Fold()
	require.Equal(t, before, c.Arena().Len())
}

func TestFoldLiteralsDisabled(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	f := g.AddCallNode("F", 1)
	f.AddInput("a", "int", "42")
	f.AddInput("b", "int", "42")
	mustLink(t, g, start.ExecOut(), f.ExecIn())

	c, err := Compile(g, &Config{})
	require.Nil(t, err)
	require.Equal(t, 2, c.Arena().CountKind(ast.Literal))
}

func TestFoldAssignmentsCollapsesRerouteChains(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	a := g.AddCallNode("A", 1)
	aOut := a.AddOutput("out", "int")
	b := g.AddCallNode("B", 2)
	bIn := b.AddInput("in", "int", "")
	mustLink(t, g, start.ExecOut(), a.ExecIn())
	mustLink(t, g, a.ExecOut(), b.ExecIn())

	r1 := g.AddDataRerouteNode("knot1", "int")
	r2 := g.AddDataRerouteNode("knot2", "int")
	mustLink(t, g, aOut, r1.FindPin("in"))
	mustLink(t, g, r1.FindPin("out"), r2.FindPin("in"))
	mustLink(t, g, r2.FindPin("out"), bIn)

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)

	require.Equal(t, 1, c.Arena().CountKind(ast.Assign))
	var assign *ast.Expression
	for _, e := range c.Arena().Expressions() {
		if e.Kind() == ast.Assign {
			assign = e
		}
	}
	require.Equal(t, aOut, assign.SourcePin())
	require.Equal(t, bIn, assign.TargetPin())

	// Only the endpoint Vars survive; the reroute passthroughs are gone.
	require.Equal(t, 2, c.Arena().CountKind(ast.Var))
}

func TestFoldAssignmentsDisabled(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	a := g.AddCallNode("A", 1)
	aOut := a.AddOutput("out", "int")
	b := g.AddCallNode("B", 2)
	bIn := b.AddInput("in", "int", "")
	mustLink(t, g, start.ExecOut(), a.ExecIn())
	mustLink(t, g, a.ExecOut(), b.ExecIn())

	r := g.AddDataRerouteNode("knot", "int")
	mustLink(t, g, aOut, r.FindPin("in"))
	mustLink(t, g, r.FindPin("out"), bIn)

	c, err := Compile(g, &Config{})
	require.Nil(t, err)
	require.Equal(t, 2, c.Arena().CountKind(ast.Assign))
}

func TestFoldAssignmentsDropsSameStorage(t *testing.T) {
	g := graph.New("test")
	g.AddEventNode("Start")
	r := g.AddDataRerouteNode("knot", "int")
	mustLink(t, g, r.FindPin("out"), r.FindPin("in"))

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)
	require.Equal(t, 0, c.Arena().CountKind(ast.Assign))
}

func TestFoldWrapsSharedPureResults(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	p := g.AddPureNode("P", 5)
	pOut := p.AddOutput("out", "int")
	b := g.AddCallNode("B", 6)
	bIn := b.AddInput("in", "int", "")
	cc := g.AddCallNode("C", 7)
	ccIn := cc.AddInput("in", "int", "")
	mustLink(t, g, start.ExecOut(), b.ExecIn())
	mustLink(t, g, b.ExecOut(), cc.ExecIn())
	mustLink(t, g, pOut, bIn)
	mustLink(t, g, pOut, ccIn)

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)

	require.Equal(t, 1, c.Arena().CountKind(ast.CachedValue))
	var cached *ast.Expression
	for _, e := range c.Arena().Expressions() {
		if e.Kind() == ast.CachedValue {
			cached = e
		}
	}
	require.Equal(t, c.ExpressionForPin(pOut), cached.VarChild())
	require.Equal(t, c.ExpressionForNode(p), cached.CallChild())
	require.Equal(t, 2, cached.NumParents())
}

func TestSinglePureConsumerIsNotCached(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	p := g.AddPureNode("P", 5)
	pOut := p.AddOutput("out", "int")
	b := g.AddCallNode("B", 6)
	bIn := b.AddInput("in", "int", "")
	mustLink(t, g, start.ExecOut(), b.ExecIn())
	mustLink(t, g, pOut, bIn)

	c, err := Compile(g, defaultConfig())
	require.Nil(t, err)
	require.Equal(t, 0, c.Arena().CountKind(ast.CachedValue))
}
