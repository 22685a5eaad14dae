package compiler

import (
	"testing"

	"github.com/rivetvm/rivet/bytecode"
	"github.com/rivetvm/rivet/graph"
	"github.com/stretchr/testify/require"
)

func compileAndGenerate(t *testing.T, g *graph.Graph, cfg *Config) []bytecode.Operation {
	t.Helper()
	c, err := Compile(g, cfg)
	require.Nil(t, err)
	code, err := c.Generate()
	require.Nil(t, err)
	operations, err := code.Operations()
	require.Nil(t, err)
	return operations
}

func TestGenerateCallWithFoldedLiterals(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	f := g.AddCallNode("F", 1)
	f.AddInput("a", "int", "42")
	f.AddInput("b", "int", "42")
	mustLink(t, g, start.ExecOut(), f.ExecIn())

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{
			FunctionIndex: 1,
			Operands: []bytecode.Operand{
				bytecode.LiteralOperand(0),
				bytecode.LiteralOperand(0),
			},
		},
		bytecode.ExitOp{},
	}, operations)
}

func TestGenerateLiteralSharedAcrossCalls(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	f := g.AddCallNode("F", 1)
	f.AddInput("x", "int", "42")
	h := g.AddCallNode("G", 2)
	h.AddInput("y", "int", "42")
	mustLink(t, g, start.ExecOut(), f.ExecIn())
	mustLink(t, g, f.ExecOut(), h.ExecIn())

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 1, Operands: []bytecode.Operand{bytecode.LiteralOperand(0)}},
		bytecode.ExecuteOp{FunctionIndex: 2, Operands: []bytecode.Operand{bytecode.LiteralOperand(0)}},
		bytecode.ExitOp{},
	}, operations)
}

func TestGenerateCopyForTypeConversion(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	a := g.AddCallNode("A", 1)
	aOut := a.AddOutput("out", "int")
	b := g.AddCallNode("B", 2)
	bIn := b.AddInput("in", "float", "")
	mustLink(t, g, start.ExecOut(), a.ExecIn())
	mustLink(t, g, a.ExecOut(), b.ExecIn())
	mustLink(t, g, aOut, bIn)

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 1, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.CopyOp{Source: bytecode.WorkOperand(0), Target: bytecode.WorkOperand(1)},
		bytecode.ExecuteOp{FunctionIndex: 2, Operands: []bytecode.Operand{bytecode.WorkOperand(1)}},
		bytecode.ExitOp{},
	}, operations)
}

func TestGenerateAssignAliasesStorage(t *testing.T) {
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

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 1, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.ExecuteOp{FunctionIndex: 2, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.ExitOp{},
	}, operations)
}

func TestGeneratePureChainInDependencyOrder(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	a := g.AddPureNode("A", 1)
	aOut := a.AddOutput("out", "int")
	b := g.AddPureNode("B", 2)
	bIn := b.AddInput("in", "int", "")
	bOut := b.AddOutput("out", "int")
	c := g.AddCallNode("C", 3)
	cIn := c.AddInput("in", "int", "")
	mustLink(t, g, start.ExecOut(), c.ExecIn())
	mustLink(t, g, aOut, bIn)
	mustLink(t, g, bOut, cIn)

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 1, Operands: []bytecode.Operand{bytecode.WorkOperand(1)}},
		bytecode.ExecuteOp{FunctionIndex: 2, Operands: []bytecode.Operand{bytecode.WorkOperand(1), bytecode.WorkOperand(0)}},
		bytecode.ExecuteOp{FunctionIndex: 3, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.ExitOp{},
	}, operations)
}

func TestGenerateSharedPureCallRunsOnce(t *testing.T) {
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

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 5, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.ExecuteOp{FunctionIndex: 6, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.ExecuteOp{FunctionIndex: 7, Operands: []bytecode.Operand{bytecode.WorkOperand(0)}},
		bytecode.ExitOp{},
	}, operations)
}

func TestGenerateEventPayloadUsesExternalRegion(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	payload := start.AddOutput("count", "int")
	f := g.AddCallNode("F", 1)
	fIn := f.AddInput("in", "int", "")
	mustLink(t, g, start.ExecOut(), f.ExecIn())
	mustLink(t, g, payload, fIn)

	operations := compileAndGenerate(t, g, defaultConfig())
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 1, Operands: []bytecode.Operand{bytecode.ExternalOperand(0)}},
		bytecode.ExitOp{},
	}, operations)
}

func TestGenerateThroughSurvivingNoOp(t *testing.T) {
	g := graph.New("test")
	start := g.AddEventNode("Start")
	r := g.AddRerouteNode("knot")
	f := g.AddCallNode("F", 1)
	mustLink(t, g, start.ExecOut(), r.ExecIn())
	mustLink(t, g, r.ExecOut(), f.ExecIn())

	operations := compileAndGenerate(t, g, &Config{})
	require.Equal(t, []bytecode.Operation{
		bytecode.ExecuteOp{FunctionIndex: 1},
		bytecode.ExitOp{},
	}, operations)
}
