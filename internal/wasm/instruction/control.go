package instruction

import "github.com/open-policy-agent/wasm-packer/internal/wasm/opcode"

// Unreachable traps immediately.
type Unreachable struct {
	NoImmediateArgs
}

func (Unreachable) Op() opcode.Opcode { return opcode.Unreachable }

// Nop does nothing.
type Nop struct {
	NoImmediateArgs
}

func (Nop) Op() opcode.Opcode { return opcode.Nop }

// End terminates a function body, block, loop, or if/else.
type End struct {
	NoImmediateArgs
}

func (End) Op() opcode.Opcode { return opcode.End }

// Return exits the current function.
type Return struct {
	NoImmediateArgs
}

func (Return) Op() opcode.Opcode { return opcode.Return }

// Drop discards the value on top of the stack.
type Drop struct {
	NoImmediateArgs
}

func (Drop) Op() opcode.Opcode { return opcode.Drop }

// Call invokes the function at Index in the module's combined function
// index space.
type Call struct {
	Index uint32
}

func (Call) Op() opcode.Opcode { return opcode.Call }

func (i Call) ImmediateArgs() []interface{} { return []interface{}{i.Index} }

// Br branches to the enclosing label Depth levels up.
type Br struct {
	Depth uint32
}

func (Br) Op() opcode.Opcode { return opcode.Br }

func (i Br) ImmediateArgs() []interface{} { return []interface{}{i.Depth} }

// BrIf conditionally branches to the enclosing label Depth levels up.
type BrIf struct {
	Depth uint32
}

func (BrIf) Op() opcode.Opcode { return opcode.BrIf }

func (i BrIf) ImmediateArgs() []interface{} { return []interface{}{i.Depth} }
