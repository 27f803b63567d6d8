// Package instruction gives every stack-machine opcode the packer or
// encoder touches a typed Go representation: one small struct per opcode,
// each knowing its own Op and immediate operands. This is the shared
// vocabulary the trampoline emitter (internal/pack) and the binary
// encoder (internal/wasm/encoding) both build on, so neither pokes raw
// opcode bytes directly.
package instruction

import "github.com/open-policy-agent/wasm-packer/internal/wasm/opcode"

// Instruction is satisfied by every opcode's struct representation.
type Instruction interface {
	// Op returns the instruction's opcode.
	Op() opcode.Opcode
	// ImmediateArgs returns the instruction's immediate operands, in the
	// order the binary encoding expects them.
	ImmediateArgs() []interface{}
}

// NoImmediateArgs is embedded by instructions that carry no immediates.
type NoImmediateArgs struct{}

// ImmediateArgs returns no operands.
func (NoImmediateArgs) ImmediateArgs() []interface{} { return nil }
