package instruction

import "github.com/open-policy-agent/wasm-packer/internal/wasm/opcode"

// I32Load reads a 32-bit integer from linear memory.
type I32Load struct {
	Offset uint32
	Align  uint32
}

func (I32Load) Op() opcode.Opcode { return opcode.I32Load }

func (i I32Load) ImmediateArgs() []interface{} { return []interface{}{i.Align, i.Offset} }

// I32Store writes a 32-bit integer to linear memory. Offset is the
// byte offset added to the address popped off the stack; Align is the
// declared (not enforced) alignment hint, encoded as the exponent of a
// power of two (2 means 4-byte aligned).
type I32Store struct {
	Offset uint32
	Align  uint32
}

func (I32Store) Op() opcode.Opcode { return opcode.I32Store }

func (i I32Store) ImmediateArgs() []interface{} { return []interface{}{i.Align, i.Offset} }

// MemorySize pushes the current size of linear memory, in pages.
type MemorySize struct {
	NoImmediateArgs
}

func (MemorySize) Op() opcode.Opcode { return opcode.MemorySize }

// MemoryGrow grows linear memory by the page count popped off the stack.
type MemoryGrow struct {
	NoImmediateArgs
}

func (MemoryGrow) Op() opcode.Opcode { return opcode.MemoryGrow }
