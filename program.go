package rivet

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid"
	"github.com/rivetvm/rivet/bytecode"
	"github.com/rivetvm/rivet/compiler"
)

// Program is a compiled graph: the bytecode plus enough metadata to
// identify where it came from. Programs are immutable after creation.
type Program struct {
	id        uuid.UUID
	name      string
	settings  compiler.Settings
	code      *bytecode.ByteCode
	createdAt time.Time
}

// NewProgram wraps compiled bytecode in a program container.
func NewProgram(name string, settings compiler.Settings, code *bytecode.ByteCode) *Program {
	return &Program{
		id:        uuid.Must(uuid.NewV4()),
		name:      name,
		settings:  settings,
		code:      code,
		createdAt: time.Now().UTC(),
	}
}

// ID returns the program's unique identifier.
func (p *Program) ID() uuid.UUID {
	return p.id
}

// Name returns the source graph's name.
func (p *Program) Name() string {
	return p.name
}

// Settings returns the folding settings the program was compiled with.
func (p *Program) Settings() compiler.Settings {
	return p.settings
}

// Code returns the compiled bytecode.
func (p *Program) Code() *bytecode.ByteCode {
	return p.code
}

// CreatedAt returns the compilation timestamp.
func (p *Program) CreatedAt() time.Time {
	return p.createdAt
}

// Serialization state for the CBOR program form.

type programState struct {
	ID        string            `cbor:"1,keyasint"`
	Name      string            `cbor:"2,keyasint"`
	Settings  compiler.Settings `cbor:"3,keyasint"`
	ByteCode  []byte            `cbor:"4,keyasint"`
	CreatedAt time.Time         `cbor:"5,keyasint"`
}

// Marshal converts the program into its persisted CBOR form.
func (p *Program) Marshal() ([]byte, error) {
	code, err := p.code.Marshal()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(programState{
		ID:        p.id.String(),
		Name:      p.name,
		Settings:  p.settings,
		ByteCode:  code,
		CreatedAt: p.createdAt,
	})
}

// UnmarshalProgram reconstructs a program from its persisted form. The
// bytecode is rebuilt record by record, rejecting malformed streams.
func UnmarshalProgram(data []byte) (*Program, error) {
	var state programState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	id, err := uuid.FromString(state.ID)
	if err != nil {
		return nil, err
	}
	code, err := bytecode.Unmarshal(state.ByteCode)
	if err != nil {
		return nil, err
	}
	return &Program{
		id:        id,
		name:      state.Name,
		settings:  state.Settings,
		code:      code,
		createdAt: state.CreatedAt,
	}, nil
}
