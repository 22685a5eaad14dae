// Package bytecode provides the append-only container for serialized
// operation records and the derived instruction index that recovers record
// boundaries from the raw byte stream.
//
// Records are variable-length and opcode-tagged: every record starts with
// a one-byte opcode, and the opcode alone determines the record size
// (Execute records additionally read their own operand count from the
// opcode). An instruction's byte offset in the buffer is its identity.
package bytecode

import (
	"encoding/binary"

	"github.com/rivetvm/rivet/errz"
	"github.com/rivetvm/rivet/op"
)

// Instruction locates one operation record in a ByteCode buffer.
type Instruction struct {
	Opcode     op.Code
	ByteOffset int
}

// ByteCode is a growable buffer of operation records. Records are
// appended, never mutated. The container does not track instruction
// boundaries incrementally; Instructions rebuilds the index by scanning
// the buffer when needed.
//
// A ByteCode is not safe for concurrent use. Callers compiling multiple
// graphs in parallel must use independent containers.
type ByteCode struct {
	buf   []byte
	index []Instruction

	// dirty is set by every Add call. A previously built instruction
	// index is invalid once the buffer has grown past it.
	dirty bool
}

// New creates an empty ByteCode container.
func New() *ByteCode {
	return &ByteCode{}
}

// Bytes returns the raw record buffer. The returned slice must not be
// modified.
func (b *ByteCode) Bytes() []byte {
	return b.buf
}

// Size returns the buffer length in bytes.
func (b *ByteCode) Size() int {
	return len(b.buf)
}

func (b *ByteCode) markDirty() {
	b.dirty = true
}

// AddExecuteOp appends an Execute record calling the external function at
// the given index with the given operands. The operand count is encoded
// in the opcode byte, which caps it at op.MaxExecuteOperands; exceeding
// the cap fails with a TooManyOperands error and appends nothing.
func (b *ByteCode) AddExecuteOp(functionIndex uint16, operands []Operand) error {
	code, ok := op.ExecuteCode(len(operands))
	if !ok {
		return errz.New(errz.KindTooManyOperands,
			"execute operation has %d operands, limit is %d",
			len(operands), op.MaxExecuteOperands)
	}
	b.buf = append(b.buf, byte(code))
	b.buf = binary.LittleEndian.AppendUint16(b.buf, functionIndex)
	for _, o := range operands {
		b.buf = appendOperand(b.buf, o)
	}
	b.markDirty()
	return nil
}

// AddZeroOp appends a record that zeroes the operand's register.
func (b *ByteCode) AddZeroOp(arg Operand) {
	b.addUnary(op.Zero, arg)
}

// AddFalseOp appends a record that sets the operand's register to false.
func (b *ByteCode) AddFalseOp(arg Operand) {
	b.addUnary(op.BoolFalse, arg)
}

// AddTrueOp appends a record that sets the operand's register to true.
func (b *ByteCode) AddTrueOp(arg Operand) {
	b.addUnary(op.BoolTrue, arg)
}

// AddIncrementOp appends a record that increments the operand's register.
func (b *ByteCode) AddIncrementOp(arg Operand) {
	b.addUnary(op.Increment, arg)
}

// AddDecrementOp appends a record that decrements the operand's register.
func (b *ByteCode) AddDecrementOp(arg Operand) {
	b.addUnary(op.Decrement, arg)
}

func (b *ByteCode) addUnary(code op.Code, arg Operand) {
	b.buf = append(b.buf, byte(code))
	b.buf = appendOperand(b.buf, arg)
	b.markDirty()
}

// AddCopyOp appends a record copying source to target. Literal registers
// are immutable, so a literal target fails with an InvalidTarget error.
func (b *ByteCode) AddCopyOp(source, target Operand) error {
	if target.Region == Literal {
		return errz.New(errz.KindInvalidTarget,
			"copy target %s is in the immutable literal region", target)
	}
	b.buf = append(b.buf, byte(op.Copy))
	b.buf = appendOperand(b.buf, source)
	b.buf = appendOperand(b.buf, target)
	b.markDirty()
	return nil
}

// AddEqualsOp appends a record comparing a and b for equality into result.
func (b *ByteCode) AddEqualsOp(a, bOperand, result Operand) {
	b.addComparison(op.Equals, a, bOperand, result)
}

// AddNotEqualsOp appends a record comparing a and b for inequality into
// result.
func (b *ByteCode) AddNotEqualsOp(a, bOperand, result Operand) {
	b.addComparison(op.NotEquals, a, bOperand, result)
}

func (b *ByteCode) addComparison(code op.Code, a, x, result Operand) {
	b.buf = append(b.buf, byte(code))
	b.buf = appendOperand(b.buf, a)
	b.buf = appendOperand(b.buf, x)
	b.buf = appendOperand(b.buf, result)
	b.markDirty()
}

// AddJumpOp appends an unconditional jump record. The target is an
// instruction-count index, not a byte offset; it is resolved against the
// instruction index when the program is executed or dumped.
func (b *ByteCode) AddJumpOp(code op.Code, instructionIndex int32) error {
	if !code.IsJump() {
		return errz.New(errz.KindInvalidTarget, "opcode %s is not a jump", code)
	}
	b.buf = append(b.buf, byte(code))
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(instructionIndex))
	b.markDirty()
	return nil
}

// AddJumpIfOp appends a conditional jump record that branches when the
// condition operand matches branchWhen.
func (b *ByteCode) AddJumpIfOp(code op.Code, instructionIndex int32, condition Operand, branchWhen bool) error {
	if !code.IsJumpIf() {
		return errz.New(errz.KindInvalidTarget, "opcode %s is not a conditional jump", code)
	}
	b.buf = append(b.buf, byte(code))
	b.buf = appendOperand(b.buf, condition)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(instructionIndex))
	if branchWhen {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	b.markDirty()
	return nil
}

// AddChangeTypeOp appends a record retyping the operand's register in
// place to the given type index and element size.
func (b *ByteCode) AddChangeTypeOp(arg Operand, typeIndex uint16, elementSize uint16) {
	b.buf = append(b.buf, byte(op.ChangeType))
	b.buf = appendOperand(b.buf, arg)
	b.buf = binary.LittleEndian.AppendUint16(b.buf, typeIndex)
	b.buf = binary.LittleEndian.AppendUint16(b.buf, elementSize)
	b.markDirty()
}

// AddExitOp appends a zero-payload Exit record.
func (b *ByteCode) AddExitOp() {
	b.buf = append(b.buf, byte(op.Exit))
	b.markDirty()
}

// Instructions returns the instruction index, rebuilding it if records
// were appended since the last call. The index is built in a single scan
// from offset zero: each opcode's known record size locates the next
// boundary.
func (b *ByteCode) Instructions() ([]Instruction, error) {
	if !b.dirty && b.index != nil {
		return b.index, nil
	}
	var index []Instruction
	offset := 0
	for offset < len(b.buf) {
		code := op.Code(b.buf[offset])
		size, err := b.recordSize(offset, code)
		if err != nil {
			return nil, err
		}
		index = append(index, Instruction{Opcode: code, ByteOffset: offset})
		offset += size
	}
	b.index = index
	b.dirty = false
	return index, nil
}

// InstructionCount returns the number of records in the buffer.
func (b *ByteCode) InstructionCount() (int, error) {
	index, err := b.Instructions()
	if err != nil {
		return 0, err
	}
	return len(index), nil
}

// recordSize returns the full record size, opcode byte included, for the
// record starting at offset.
func (b *ByteCode) recordSize(offset int, code op.Code) (int, error) {
	var size int
	if count, ok := code.ExecuteOperandCount(); ok {
		size = 1 + 2 + count*op.OperandSize
	} else {
		info := op.GetInfo(code)
		if info.Name == "" || code == op.Invalid {
			return 0, errz.New(errz.KindInvalidTarget,
				"unknown opcode %d at byte offset %d", uint8(code), offset)
		}
		size = 1 + info.PayloadSize
	}
	if offset+size > len(b.buf) {
		return 0, errz.New(errz.KindInvalidTarget,
			"truncated %s record at byte offset %d", code, offset)
	}
	return size, nil
}

// OperandsForExecuteOp decodes the operand array of the Execute record
// identified by the given instruction.
func (b *ByteCode) OperandsForExecuteOp(instr Instruction) ([]Operand, error) {
	count, ok := instr.Opcode.ExecuteOperandCount()
	if !ok {
		return nil, errz.New(errz.KindInvalidDowncast,
			"instruction at offset %d is %s, not an execute", instr.ByteOffset, instr.Opcode)
	}
	if count == 0 {
		return nil, nil
	}
	operands := make([]Operand, count)
	offset := instr.ByteOffset + 3 // opcode + function index
	for i := 0; i < count; i++ {
		operands[i] = decodeOperand(b.buf[offset:])
		offset += op.OperandSize
	}
	return operands, nil
}
