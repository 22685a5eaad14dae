// Package dis supports analysis of rivet bytecode by disassembling it.
// This works with the opcodes defined in the op package and the decoded
// operation types from the bytecode package.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rivetvm/rivet/bytecode"
	"github.com/rivetvm/rivet/internal/table"
	"github.com/rivetvm/rivet/op"
)

// Instruction represents a single disassembled bytecode instruction.
type Instruction struct {
	Offset    int
	Name      string
	Opcode    op.Code
	Operands  string
	Operation bytecode.Operation
}

// Disassemble returns a parsed representation of the given bytecode.
func Disassemble(code *bytecode.ByteCode) ([]Instruction, error) {
	index, err := code.Instructions()
	if err != nil {
		return nil, err
	}
	instructions := make([]Instruction, len(index))
	for i, instr := range index {
		decoded, err := code.OperationAt(instr)
		if err != nil {
			return nil, err
		}
		instructions[i] = Instruction{
			Offset:    instr.ByteOffset,
			Name:      instr.Opcode.String(),
			Opcode:    instr.Opcode,
			Operands:  formatOperands(decoded),
			Operation: decoded,
		}
	}
	return instructions, nil
}

// Print writes a table representation of the instructions to the writer.
func Print(instructions []Instruction, writer io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	var lines [][]string
	for _, instr := range instructions {
		lines = append(lines, []string{
			fmt.Sprintf("%d", instr.Offset),
			bold(instr.Name),
			cyan(instr.Operands),
		})
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

func formatOperands(operation bytecode.Operation) string {
	switch o := operation.(type) {
	case bytecode.ExecuteOp:
		parts := make([]string, 0, len(o.Operands)+1)
		parts = append(parts, fmt.Sprintf("fn=%d", o.FunctionIndex))
		for _, operand := range o.Operands {
			parts = append(parts, operand.String())
		}
		return strings.Join(parts, ", ")
	case bytecode.UnaryOp:
		return o.Arg.String()
	case bytecode.CopyOp:
		return fmt.Sprintf("%s, %s", o.Source, o.Target)
	case bytecode.ComparisonOp:
		return fmt.Sprintf("%s, %s, %s", o.A, o.B, o.Result)
	case bytecode.JumpOp:
		return fmt.Sprintf("%d", o.InstructionIndex)
	case bytecode.JumpIfOp:
		return fmt.Sprintf("%s, %d, %t", o.Condition, o.InstructionIndex, o.BranchWhen)
	case bytecode.ChangeTypeOp:
		return fmt.Sprintf("%s, type=%d, size=%d", o.Arg, o.Type, o.ElementSize)
	case bytecode.ExitOp:
		return ""
	default:
		return fmt.Sprintf("%v", operation)
	}
}
