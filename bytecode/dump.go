package bytecode

import (
	"fmt"
	"strings"
)

// DumpToText returns a stable, human-readable disassembly of the buffer,
// one line per instruction: byte offset, opcode name, then the decoded
// operands. Intended for test fixtures and debugging, not as a wire
// format.
func (b *ByteCode) DumpToText() (string, error) {
	index, err := b.Instructions()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, instr := range index {
		decoded, err := b.OperationAt(instr)
		if err != nil {
			return "", err
		}
		line := fmt.Sprintf("%04d %-16s %s", instr.ByteOffset, instr.Opcode, formatOperation(decoded))
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func formatOperation(operation Operation) string {
	switch o := operation.(type) {
	case ExecuteOp:
		parts := make([]string, len(o.Operands))
		for i, operand := range o.Operands {
			parts[i] = operand.String()
		}
		return fmt.Sprintf("fn=%d (%s)", o.FunctionIndex, strings.Join(parts, ", "))
	case UnaryOp:
		return o.Arg.String()
	case CopyOp:
		return fmt.Sprintf("%s -> %s", o.Source, o.Target)
	case ComparisonOp:
		return fmt.Sprintf("%s, %s -> %s", o.A, o.B, o.Result)
	case JumpOp:
		return fmt.Sprintf("instruction %d", o.InstructionIndex)
	case JumpIfOp:
		return fmt.Sprintf("if %s == %t, instruction %d", o.Condition, o.BranchWhen, o.InstructionIndex)
	case ChangeTypeOp:
		return fmt.Sprintf("%s type=%d size=%d", o.Arg, o.Type, o.ElementSize)
	case ExitOp:
		return ""
	default:
		return fmt.Sprintf("%v", operation)
	}
}
