package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeConstructors(t *testing.T) {
	g := New("test")

	event := g.AddEventNode("Start")
	require.Equal(t, Event, event.Kind())
	require.Nil(t, event.ExecIn())
	require.NotNil(t, event.ExecOut())

	call := g.AddCallNode("DoThing", 7)
	require.Equal(t, Call, call.Kind())
	require.Equal(t, uint16(7), call.FunctionIndex())
	require.False(t, call.IsPure())
	require.NotNil(t, call.ExecIn())
	require.NotNil(t, call.ExecOut())
	require.Equal(t, "then", call.ExecOut().Name())

	pure := g.AddPureNode("Add", 8)
	require.True(t, pure.IsPure())
	require.Nil(t, pure.ExecIn())
	require.Nil(t, pure.ExecOut())

	reroute := g.AddRerouteNode("knot")
	require.Equal(t, Reroute, reroute.Kind())
	require.NotNil(t, reroute.ExecIn())
	require.NotNil(t, reroute.ExecOut())

	data := g.AddDataRerouteNode("wire", "int")
	require.Equal(t, Reroute, data.Kind())
	require.Nil(t, data.ExecIn())
	require.Equal(t, "int", data.FindPin("in").Type())
	require.Equal(t, "int", data.FindPin("out").Type())

	require.Len(t, g.Nodes(), 5)
}

func TestPins(t *testing.T) {
	g := New("test")
	n := g.AddPureNode("Add", 1)
	a := n.AddInput("a", "int", "1")
	b := n.AddInput("b", "int", "")
	sum := n.AddOutput("sum", "int")

	require.Equal(t, []*Pin{a, b, sum}, n.Pins())
	require.Equal(t, 0, a.Index())
	require.Equal(t, 2, sum.Index())
	require.Equal(t, Input, a.Direction())
	require.Equal(t, Output, sum.Direction())
	require.True(t, a.HasDefault())
	require.Equal(t, "1", a.DefaultValue())
	require.False(t, b.HasDefault())
	require.False(t, a.IsExec())
	require.Equal(t, "Add.a", a.Path())
	require.Equal(t, a, n.FindPin("a"))
	require.Nil(t, n.FindPin("missing"))
	require.Equal(t, n, a.Node())
	require.Equal(t, g, n.Graph())
}

func TestAddLink(t *testing.T) {
	g := New("test")
	event := g.AddEventNode("Start")
	call := g.AddCallNode("DoThing", 1)
	out := call.AddOutput("out", "int")
	in := call.AddInput("in", "int", "")

	l, err := g.AddLink(event.ExecOut(), call.ExecIn())
	require.Nil(t, err)
	require.Equal(t, event.ExecOut(), l.Source())
	require.Equal(t, call.ExecIn(), l.Target())
	require.Len(t, g.Links(), 1)

	// Source must be an output pin.
	_, err = g.AddLink(in, call.ExecIn())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "not an output pin")

	// Target must be an input pin.
	_, err = g.AddLink(out, call.ExecOut())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "not an input pin")

	// Execution and data pins never mix.
	_, err = g.AddLink(out, call.ExecIn())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "incompatible")

	// A target accepts at most one link.
	other := g.AddEventNode("Other")
	_, err = g.AddLink(other.ExecOut(), call.ExecIn())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "already linked")

	// Endpoints must share the graph.
	g2 := New("other")
	foreign := g2.AddCallNode("Foreign", 2)
	_, err = g.AddLink(out, foreign.AddInput("in", "int", ""))
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "must belong to graph")
}

func TestLinkedLookups(t *testing.T) {
	g := New("test")
	a := g.AddPureNode("A", 1)
	out := a.AddOutput("out", "int")
	b := g.AddPureNode("B", 2)
	bIn := b.AddInput("in", "int", "")
	c := g.AddPureNode("C", 3)
	cIn := c.AddInput("in", "int", "")

	_, err := g.AddLink(out, bIn)
	require.Nil(t, err)
	_, err = g.AddLink(out, cIn)
	require.Nil(t, err)

	require.Equal(t, out, g.LinkedSource(bIn))
	require.Nil(t, g.LinkedSource(out))
	require.Equal(t, []*Pin{bIn, cIn}, g.LinkedTargets(out))
	require.Nil(t, g.LinkedTargets(bIn))
}
