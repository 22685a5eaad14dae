package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Marshal converts the container into its persisted binary form: a u32
// instruction count followed by the record stream. The form is forward
// compatible in the sense that loading never re-derives byte offsets; it
// reconstructs records one by one through the same Add calls used at
// build time.
func (b *ByteCode) Marshal() ([]byte, error) {
	index, err := b.Instructions()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 4+len(b.buf))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(index)))
	out = append(out, b.buf...)
	return out, nil
}

// Unmarshal reconstructs a ByteCode container from its persisted form.
func Unmarshal(data []byte) (*ByteCode, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("bytecode data too short: %d bytes", len(data))
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))

	// Decode through a scratch container so malformed record streams are
	// rejected before any state is built up.
	scratch := &ByteCode{buf: data[4:], dirty: true}
	operations, err := scratch.Operations()
	if err != nil {
		return nil, err
	}
	if len(operations) != count {
		return nil, fmt.Errorf("bytecode declares %d instructions but contains %d", count, len(operations))
	}

	out := New()
	for _, operation := range operations {
		if err := out.append(operation); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// append re-emits a decoded operation through the public Add calls.
func (b *ByteCode) append(operation Operation) error {
	switch o := operation.(type) {
	case ExecuteOp:
		return b.AddExecuteOp(o.FunctionIndex, o.Operands)
	case UnaryOp:
		b.addUnary(o.Code, o.Arg)
		return nil
	case CopyOp:
		return b.AddCopyOp(o.Source, o.Target)
	case ComparisonOp:
		b.addComparison(o.Code, o.A, o.B, o.Result)
		return nil
	case JumpOp:
		return b.AddJumpOp(o.Code, o.InstructionIndex)
	case JumpIfOp:
		return b.AddJumpIfOp(o.Code, o.InstructionIndex, o.Condition, o.BranchWhen)
	case ChangeTypeOp:
		b.AddChangeTypeOp(o.Arg, o.Type, o.ElementSize)
		return nil
	case ExitOp:
		b.AddExitOp()
		return nil
	default:
		return fmt.Errorf("unknown operation type %T", operation)
	}
}
