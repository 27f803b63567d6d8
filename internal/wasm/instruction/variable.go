package instruction

import "github.com/open-policy-agent/wasm-packer/internal/wasm/opcode"

// GetLocal reads a local variable (including parameters) onto the stack.
type GetLocal struct {
	Index uint32
}

func (GetLocal) Op() opcode.Opcode { return opcode.LocalGet }

func (i GetLocal) ImmediateArgs() []interface{} { return []interface{}{i.Index} }

// SetLocal pops the stack top into a local variable.
type SetLocal struct {
	Index uint32
}

func (SetLocal) Op() opcode.Opcode { return opcode.LocalSet }

func (i SetLocal) ImmediateArgs() []interface{} { return []interface{}{i.Index} }

// TeeLocal writes a local variable without popping the stack.
type TeeLocal struct {
	Index uint32
}

func (TeeLocal) Op() opcode.Opcode { return opcode.LocalTee }

func (i TeeLocal) ImmediateArgs() []interface{} { return []interface{}{i.Index} }

// GetGlobal reads a global variable onto the stack.
type GetGlobal struct {
	Index uint32
}

func (GetGlobal) Op() opcode.Opcode { return opcode.GlobalGet }

func (i GetGlobal) ImmediateArgs() []interface{} { return []interface{}{i.Index} }

// SetGlobal pops the stack top into a global variable.
type SetGlobal struct {
	Index uint32
}

func (SetGlobal) Op() opcode.Opcode { return opcode.GlobalSet }

func (i SetGlobal) ImmediateArgs() []interface{} { return []interface{}{i.Index} }
