package bytecode

import (
	"encoding/binary"

	"github.com/rivetvm/rivet/errz"
	"github.com/rivetvm/rivet/op"
)

// Operation is the decoded, in-memory form of one operation record. It is
// a closed sum: the concrete types below are the only implementations.
//
// Note the asymmetry with the wire form: an ExecuteOp carries its operand
// count explicitly (as the length of its operand slice), while the wire
// form folds the count into the opcode byte.
type Operation interface {
	// Opcode returns the wire opcode for this operation.
	Opcode() op.Code
}

// ExecuteOp calls an external function with a packed operand array.
type ExecuteOp struct {
	FunctionIndex uint16
	Operands      []Operand
}

// Opcode returns the Execute opcode encoding the operand count.
func (o ExecuteOp) Opcode() op.Code {
	code, _ := op.ExecuteCode(len(o.Operands))
	return code
}

// UnaryOp mutates a single register: Zero, BoolFalse, BoolTrue,
// Increment or Decrement.
type UnaryOp struct {
	Code op.Code
	Arg  Operand
}

func (o UnaryOp) Opcode() op.Code { return o.Code }

// CopyOp copies the source register's value into the target register.
type CopyOp struct {
	Source Operand
	Target Operand
}

func (o CopyOp) Opcode() op.Code { return op.Copy }

// ComparisonOp compares A and B into Result: Equals or NotEquals.
type ComparisonOp struct {
	Code   op.Code
	A      Operand
	B      Operand
	Result Operand
}

func (o ComparisonOp) Opcode() op.Code { return o.Code }

// JumpOp transfers control to an instruction-count index.
type JumpOp struct {
	Code             op.Code
	InstructionIndex int32
}

func (o JumpOp) Opcode() op.Code { return o.Code }

// JumpIfOp transfers control when the condition register matches
// BranchWhen.
type JumpIfOp struct {
	Code             op.Code
	Condition        Operand
	InstructionIndex int32
	BranchWhen       bool
}

func (o JumpIfOp) Opcode() op.Code { return o.Code }

// ChangeTypeOp retypes a register in place.
type ChangeTypeOp struct {
	Arg         Operand
	Type        uint16
	ElementSize uint16
}

func (o ChangeTypeOp) Opcode() op.Code { return op.ChangeType }

// ExitOp terminates execution.
type ExitOp struct{}

func (o ExitOp) Opcode() op.Code { return op.Exit }

// OperationAt decodes the record identified by the given instruction.
func (b *ByteCode) OperationAt(instr Instruction) (Operation, error) {
	payload := b.buf[instr.ByteOffset+1:]
	code := instr.Opcode
	switch {
	case code.IsExecute():
		operands, err := b.OperandsForExecuteOp(instr)
		if err != nil {
			return nil, err
		}
		return ExecuteOp{
			FunctionIndex: binary.LittleEndian.Uint16(payload[0:2]),
			Operands:      operands,
		}, nil
	case code.IsUnary():
		return UnaryOp{Code: code, Arg: decodeOperand(payload)}, nil
	case code == op.Copy:
		return CopyOp{
			Source: decodeOperand(payload),
			Target: decodeOperand(payload[op.OperandSize:]),
		}, nil
	case code == op.Equals, code == op.NotEquals:
		return ComparisonOp{
			Code:   code,
			A:      decodeOperand(payload),
			B:      decodeOperand(payload[op.OperandSize:]),
			Result: decodeOperand(payload[2*op.OperandSize:]),
		}, nil
	case code.IsJump():
		return JumpOp{
			Code:             code,
			InstructionIndex: int32(binary.LittleEndian.Uint32(payload[0:4])),
		}, nil
	case code.IsJumpIf():
		return JumpIfOp{
			Code:             code,
			Condition:        decodeOperand(payload),
			InstructionIndex: int32(binary.LittleEndian.Uint32(payload[op.OperandSize : op.OperandSize+4])),
			BranchWhen:       payload[op.OperandSize+4] != 0,
		}, nil
	case code == op.ChangeType:
		return ChangeTypeOp{
			Arg:         decodeOperand(payload),
			Type:        binary.LittleEndian.Uint16(payload[op.OperandSize : op.OperandSize+2]),
			ElementSize: binary.LittleEndian.Uint16(payload[op.OperandSize+2 : op.OperandSize+4]),
		}, nil
	case code == op.Exit:
		return ExitOp{}, nil
	default:
		return nil, errz.New(errz.KindInvalidTarget,
			"unknown opcode %d at byte offset %d", uint8(code), instr.ByteOffset)
	}
}

// Operations decodes every record in the buffer, in order.
func (b *ByteCode) Operations() ([]Operation, error) {
	index, err := b.Instructions()
	if err != nil {
		return nil, err
	}
	operations := make([]Operation, len(index))
	for i, instr := range index {
		decoded, err := b.OperationAt(instr)
		if err != nil {
			return nil, err
		}
		operations[i] = decoded
	}
	return operations, nil
}
