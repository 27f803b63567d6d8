// Package opcode enumerates the stack-machine instruction opcodes that the
// module model, instruction set, and encoder agree on. Values match the
// well-known wire encoding so the encoder needs no translation table.
package opcode

// Opcode is the one-byte tag that precedes an instruction's immediates in
// the binary encoding.
type Opcode byte

const (
	Unreachable Opcode = 0x00
	Nop         Opcode = 0x01
	Block       Opcode = 0x02
	Loop        Opcode = 0x03
	If          Opcode = 0x04
	Else        Opcode = 0x05
	End         Opcode = 0x0b
	Br          Opcode = 0x0c
	BrIf        Opcode = 0x0d
	Return      Opcode = 0x0f
	Call        Opcode = 0x10
	CallIndirect Opcode = 0x11

	Drop   Opcode = 0x1a
	Select Opcode = 0x1b

	LocalGet  Opcode = 0x20
	LocalSet  Opcode = 0x21
	LocalTee  Opcode = 0x22
	GlobalGet Opcode = 0x23
	GlobalSet Opcode = 0x24

	I32Load Opcode = 0x28
	I64Load Opcode = 0x29
	F32Load Opcode = 0x2a
	F64Load Opcode = 0x2b

	I32Store Opcode = 0x36
	I64Store Opcode = 0x37
	F32Store Opcode = 0x38
	F64Store Opcode = 0x39

	MemorySize Opcode = 0x3f
	MemoryGrow Opcode = 0x40

	I32Const Opcode = 0x41
	I64Const Opcode = 0x42
	F32Const Opcode = 0x43
	F64Const Opcode = 0x44

	I32Eqz Opcode = 0x45
	I32Eq  Opcode = 0x46
	I32Ne  Opcode = 0x47

	I32Add Opcode = 0x6a
	I32Sub Opcode = 0x6b
	I32Mul Opcode = 0x6c
)

// BlockType is the immediate of Block/Loop/If, signifying their result
// arity. Only the empty form is used by this tool's own emitted code.
type BlockType byte

const BlockTypeEmpty BlockType = 0x40
