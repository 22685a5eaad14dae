package bytecode

import (
	"encoding/binary"
	"fmt"
)

// MemoryRegion identifies which register bank an operand addresses.
type MemoryRegion uint8

const (
	// Work registers hold transient values computed during execution.
	Work MemoryRegion = iota

	// Literal registers hold immutable constants. Writing to a literal
	// register is rejected at emission time.
	Literal

	// External registers hold values provided by the host before
	// execution starts.
	External
)

// String returns the lowercase region name.
func (r MemoryRegion) String() string {
	switch r {
	case Work:
		return "work"
	case Literal:
		return "literal"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// Operand identifies a storage slot in the virtual machine's register
// memory. It does not own the memory; register indices are meaningful only
// relative to a companion memory layout. Operands are copied freely and
// compare by value.
type Operand struct {
	Region      MemoryRegion
	Register    uint32
	SubRegister uint32
}

// String returns "region:register" or "region:register.sub" for operands
// addressing a subregister.
func (o Operand) String() string {
	if o.SubRegister != 0 {
		return fmt.Sprintf("%s:%d.%d", o.Region, o.Register, o.SubRegister)
	}
	return fmt.Sprintf("%s:%d", o.Region, o.Register)
}

// WorkOperand returns an operand addressing a work register.
func WorkOperand(register uint32) Operand {
	return Operand{Region: Work, Register: register}
}

// LiteralOperand returns an operand addressing a literal register.
func LiteralOperand(register uint32) Operand {
	return Operand{Region: Literal, Register: register}
}

// ExternalOperand returns an operand addressing an external register.
func ExternalOperand(register uint32) Operand {
	return Operand{Region: External, Register: register}
}

// appendOperand encodes an operand in its 9-byte wire form.
func appendOperand(buf []byte, o Operand) []byte {
	buf = append(buf, byte(o.Region))
	buf = binary.LittleEndian.AppendUint32(buf, o.Register)
	buf = binary.LittleEndian.AppendUint32(buf, o.SubRegister)
	return buf
}

func decodeOperand(buf []byte) Operand {
	return Operand{
		Region:      MemoryRegion(buf[0]),
		Register:    binary.LittleEndian.Uint32(buf[1:5]),
		SubRegister: binary.LittleEndian.Uint32(buf[5:9]),
	}
}
