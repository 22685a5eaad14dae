package compiler

import (
	"github.com/rivetvm/rivet/ast"
	"github.com/rivetvm/rivet/bytecode"
	"github.com/rivetvm/rivet/errz"
	"github.com/rivetvm/rivet/graph"
)

// Generate walks the folded expression tree and emits operation records
// for every entry, in entry child order. Register allocation is implied
// by the tree: literals go to the immutable literal region, event payload
// pins to the external region and everything else to work registers.
// Assign expressions alias storage and emit nothing; Copy expressions
// emit converting copy records at their block position.
func (c *Compiler) Generate() (*bytecode.ByteCode, error) {
	g := &generator{
		c:        c,
		bc:       bytecode.New(),
		operands: make(map[*ast.Expression]bytecode.Operand),
		pinRegs:  make(map[*graph.Pin]bytecode.Operand),
		emitted:  make(map[*ast.Expression]bool),
		next:     make(map[bytecode.MemoryRegion]uint32),
	}
	for _, entry := range c.Entries() {
		if err := g.genBlock(entry); err != nil {
			return nil, err
		}
	}
	count, err := g.bc.InstructionCount()
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("instructions", count).Msg("generated bytecode")
	return g.bc, nil
}

type generator struct {
	c  *Compiler
	bc *bytecode.ByteCode

	// operands memoizes the storage slot chosen for each expression.
	operands map[*ast.Expression]bytecode.Operand

	// pinRegs holds registers for output pins that never got a Var
	// expression (unconsumed call outputs still need a slot to write to).
	pinRegs map[*graph.Pin]bytecode.Operand

	// emitted tracks calls and copies already written to the buffer, so
	// shared producers execute once.
	emitted map[*ast.Expression]bool

	next map[bytecode.MemoryRegion]uint32
}

func (g *generator) alloc(region bytecode.MemoryRegion) bytecode.Operand {
	o := bytecode.Operand{Region: region, Register: g.next[region]}
	g.next[region]++
	return o
}

func (g *generator) genBlock(block *ast.Expression) error {
	for _, child := range block.Children() {
		switch child.Kind() {
		case ast.CallExternal:
			if err := g.emitCall(child); err != nil {
				return err
			}
		case ast.Copy:
			if _, err := g.resolve(g.c.pinExprs[child.TargetPin()]); err != nil {
				return err
			}
		case ast.Assign:
			if _, err := g.resolve(child); err != nil {
				return err
			}
		case ast.NoOp:
			// Reroutes survive when folding is disabled; they execute
			// transparently.
			if err := g.genBlock(child); err != nil {
				return err
			}
		case ast.Exit:
			g.bc.AddExitOp()
		}
	}
	return nil
}

// emitCall emits prerequisite records for the call's inputs, then the
// Execute record itself with one operand per data pin in pin order.
func (g *generator) emitCall(call *ast.Expression) error {
	if g.emitted[call] {
		return nil
	}
	g.emitted[call] = true

	node := call.Node()
	var operands []bytecode.Operand
	for _, pin := range node.Pins() {
		if pin.IsExec() {
			continue
		}
		operand, err := g.operandForPin(pin)
		if err != nil {
			return err
		}
		operands = append(operands, operand)
	}
	return g.bc.AddExecuteOp(node.FunctionIndex(), operands)
}

func (g *generator) operandForPin(pin *graph.Pin) (bytecode.Operand, error) {
	if e := g.c.pinExprs[pin]; e != nil {
		return g.resolve(e)
	}
	if o, ok := g.pinRegs[pin]; ok {
		return o, nil
	}
	o := g.alloc(bytecode.Work)
	g.pinRegs[pin] = o
	return o, nil
}

// resolve returns the storage slot for an expression, emitting any
// records required to populate it (pure call executes, converting
// copies) in dependency order.
func (g *generator) resolve(e *ast.Expression) (bytecode.Operand, error) {
	if e == nil {
		return bytecode.Operand{}, errz.New(errz.KindMalformedGraph,
			"expression missing during generation")
	}
	if o, ok := g.operands[e]; ok {
		return o, nil
	}
	switch e.Kind() {
	case ast.Literal:
		o := g.alloc(bytecode.Literal)
		g.operands[e] = o
		return o, nil

	case ast.Var:
		return g.resolveVar(e)

	case ast.Assign:
		// Aliasing: the target shares the source's storage.
		o, err := g.resolve(e.Children()[0])
		if err != nil {
			return bytecode.Operand{}, err
		}
		g.operands[e] = o
		return o, nil

	case ast.Copy:
		return g.resolveCopy(e)

	case ast.CachedValue:
		o, err := g.resolve(e.VarChild())
		if err != nil {
			return bytecode.Operand{}, err
		}
		if err := g.emitCall(e.CallChild()); err != nil {
			return bytecode.Operand{}, err
		}
		g.operands[e] = o
		return o, nil

	default:
		return bytecode.Operand{}, errz.New(errz.KindMalformedGraph,
			"cannot allocate storage for %s expression", e.Kind()).WithSubject(e.Name())
	}
}

func (g *generator) resolveVar(v *ast.Expression) (bytecode.Operand, error) {
	for _, child := range v.Children() {
		switch child.Kind() {
		case ast.Literal, ast.Assign, ast.CachedValue:
			o, err := g.resolve(child)
			if err != nil {
				return bytecode.Operand{}, err
			}
			g.operands[v] = o
			return o, nil

		case ast.Copy:
			// The copy writes into this var's own register; allocate it
			// first so the copy can address it.
			o := g.alloc(regionForPin(v.Pin()))
			g.operands[v] = o
			if _, err := g.resolve(child); err != nil {
				return bytecode.Operand{}, err
			}
			return o, nil

		case ast.CallExternal:
			// Produced by a pure call: give the result a register, then
			// make sure the producer has executed.
			o := g.alloc(regionForPin(v.Pin()))
			g.operands[v] = o
			if err := g.emitCall(child); err != nil {
				return bytecode.Operand{}, err
			}
			return o, nil
		}
	}
	o := g.alloc(regionForPin(v.Pin()))
	g.operands[v] = o
	return o, nil
}

func (g *generator) resolveCopy(copyExpr *ast.Expression) (bytecode.Operand, error) {
	source, err := g.resolve(copyExpr.Children()[0])
	if err != nil {
		return bytecode.Operand{}, err
	}
	target, err := g.resolve(g.c.pinExprs[copyExpr.TargetPin()])
	if err != nil {
		return bytecode.Operand{}, err
	}
	g.operands[copyExpr] = target
	if !g.emitted[copyExpr] {
		g.emitted[copyExpr] = true
		if err := g.bc.AddCopyOp(source, target); err != nil {
			return bytecode.Operand{}, err
		}
	}
	return target, nil
}

// regionForPin maps event payload pins to the external region and
// everything else to work registers.
func regionForPin(pin *graph.Pin) bytecode.MemoryRegion {
	if pin.Node().Kind() == graph.Event {
		return bytecode.External
	}
	return bytecode.Work
}
