// Package op defines the opcodes used by the rivet compiler and the byte
// layout of each operation record.
package op

import "fmt"

// Code is a one-byte opcode that discriminates operation records in a
// bytecode buffer.
//
// Execute occupies the range [ExecuteFirst, ExecuteLast]: the opcode value
// itself encodes the operand count on the wire. In-memory representations
// should carry an explicit operand count and only use this arithmetic when
// encoding or decoding records.
type Code uint8

const (
	// ExecuteFirst is an external function call with zero operands. Each
	// following value up to ExecuteLast adds one operand.
	ExecuteFirst Code = 0

	// ExecuteLast is an external function call with MaxExecuteOperands
	// operands.
	ExecuteLast Code = 64

	Zero           Code = 65
	BoolFalse      Code = 66
	BoolTrue       Code = 67
	Copy           Code = 68
	Increment      Code = 69
	Decrement      Code = 70
	Equals         Code = 71
	NotEquals      Code = 72
	JumpAbsolute   Code = 73
	JumpForward    Code = 74
	JumpBackward   Code = 75
	JumpAbsoluteIf Code = 76
	JumpForwardIf  Code = 77
	JumpBackwardIf Code = 78
	ChangeType     Code = 79
	Exit           Code = 80

	Invalid Code = 255
)

// MaxExecuteOperands is the largest operand count an Execute record can
// encode, limited by the opcode range reserved for Execute.
const MaxExecuteOperands = 64

// OperandSize is the encoded size of a bytecode.Operand in bytes:
// region u8, register u32, subregister u32.
const OperandSize = 9

// IsExecute returns true if the code is one of the Execute opcodes.
func (c Code) IsExecute() bool {
	return c <= ExecuteLast
}

// IsJump returns true for the unconditional jump opcodes.
func (c Code) IsJump() bool {
	return c == JumpAbsolute || c == JumpForward || c == JumpBackward
}

// IsJumpIf returns true for the conditional jump opcodes.
func (c Code) IsJumpIf() bool {
	return c == JumpAbsoluteIf || c == JumpForwardIf || c == JumpBackwardIf
}

// IsUnary returns true for the single-operand opcodes.
func (c Code) IsUnary() bool {
	switch c {
	case Zero, BoolFalse, BoolTrue, Increment, Decrement:
		return true
	}
	return false
}

// ExecuteOperandCount returns the operand count encoded in an Execute
// opcode. The second return value is false if the code is not an Execute.
func (c Code) ExecuteOperandCount() (int, bool) {
	if !c.IsExecute() {
		return 0, false
	}
	return int(c - ExecuteFirst), true
}

// ExecuteCode returns the Execute opcode for the given operand count.
// The second return value is false if the count exceeds MaxExecuteOperands.
func ExecuteCode(operandCount int) (Code, bool) {
	if operandCount < 0 || operandCount > MaxExecuteOperands {
		return Invalid, false
	}
	return ExecuteFirst + Code(operandCount), true
}

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string

	// PayloadSize is the fixed number of bytes that follow the opcode byte.
	// For Execute opcodes it covers the function index only; the operand
	// array that follows is sized by the opcode's operand count.
	PayloadSize int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op   Code
		name string
		size int
	}
	ops := []opInfo{
		{Zero, "ZERO", OperandSize},
		{BoolFalse, "BOOL_FALSE", OperandSize},
		{BoolTrue, "BOOL_TRUE", OperandSize},
		{Copy, "COPY", 2 * OperandSize},
		{Increment, "INCREMENT", OperandSize},
		{Decrement, "DECREMENT", OperandSize},
		{Equals, "EQUALS", 3 * OperandSize},
		{NotEquals, "NOT_EQUALS", 3 * OperandSize},
		{JumpAbsolute, "JUMP_ABSOLUTE", 4},
		{JumpForward, "JUMP_FORWARD", 4},
		{JumpBackward, "JUMP_BACKWARD", 4},
		{JumpAbsoluteIf, "JUMP_ABSOLUTE_IF", OperandSize + 5},
		{JumpForwardIf, "JUMP_FORWARD_IF", OperandSize + 5},
		{JumpBackwardIf, "JUMP_BACKWARD_IF", OperandSize + 5},
		{ChangeType, "CHANGE_TYPE", OperandSize + 4},
		{Exit, "EXIT", 0},
	}
	for c := ExecuteFirst; c <= ExecuteLast; c++ {
		infos[c] = Info{
			Code:        c,
			Name:        fmt.Sprintf("EXECUTE_%d", c-ExecuteFirst),
			PayloadSize: 2, // function index; operands follow separately
		}
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:        o.op,
			Name:        o.name,
			PayloadSize: o.size,
		}
	}
	infos[Invalid] = Info{Code: Invalid, Name: "INVALID"}
}

// GetInfo returns information about the given opcode.
func GetInfo(c Code) Info {
	return infos[c]
}

// String returns the mnemonic name of the opcode.
func (c Code) String() string {
	name := infos[c].Name
	if name == "" {
		return fmt.Sprintf("UNKNOWN_%d", uint8(c))
	}
	return name
}
