package encoding

import (
	"bytes"
	"fmt"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/opcode"
)

// writeInstruction encodes a single instruction's opcode and immediates.
func writeInstruction(buf *bytes.Buffer, instr instruction.Instruction) error {
	buf.WriteByte(byte(instr.Op()))
	switch i := instr.(type) {
	case instruction.I32Const:
		writeVarint(buf, int64(i.Value))
	case instruction.I64Const:
		writeVarint(buf, i.Value)
	case instruction.GetLocal:
		writeUvarint(buf, uint64(i.Index))
	case instruction.SetLocal:
		writeUvarint(buf, uint64(i.Index))
	case instruction.TeeLocal:
		writeUvarint(buf, uint64(i.Index))
	case instruction.GetGlobal:
		writeUvarint(buf, uint64(i.Index))
	case instruction.SetGlobal:
		writeUvarint(buf, uint64(i.Index))
	case instruction.Call:
		writeUvarint(buf, uint64(i.Index))
	case instruction.Br:
		writeUvarint(buf, uint64(i.Depth))
	case instruction.BrIf:
		writeUvarint(buf, uint64(i.Depth))
	case instruction.I32Load:
		writeUvarint(buf, uint64(i.Align))
		writeUvarint(buf, uint64(i.Offset))
	case instruction.I32Store:
		writeUvarint(buf, uint64(i.Align))
		writeUvarint(buf, uint64(i.Offset))
	case instruction.MemorySize:
		buf.WriteByte(0x00)
	case instruction.MemoryGrow:
		buf.WriteByte(0x00)
	case instruction.Unreachable, instruction.Nop, instruction.End,
		instruction.Return, instruction.Drop,
		instruction.I32Eqz, instruction.I32Add:
		// no immediates
	default:
		return fmt.Errorf("encoding: unsupported instruction %T", instr)
	}
	return nil
}

// readInstruction decodes a single instruction and returns it. Callers
// check whether it is an End to know when an expression is complete.
func readInstruction(r *bytes.Reader) (instruction.Instruction, error) {
	op, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch opcode.Opcode(op) {
	case opcode.Unreachable:
		return instruction.Unreachable{}, nil
	case opcode.Nop:
		return instruction.Nop{}, nil
	case opcode.End:
		return instruction.End{}, nil
	case opcode.Return:
		return instruction.Return{}, nil
	case opcode.Drop:
		return instruction.Drop{}, nil
	case opcode.I32Eqz:
		return instruction.I32Eqz{}, nil
	case opcode.I32Add:
		return instruction.I32Add{}, nil
	case opcode.I32Const:
		v, err := readVarint(r, 32)
		if err != nil {
			return nil, err
		}
		return instruction.I32Const{Value: int32(v)}, nil
	case opcode.I64Const:
		v, err := readVarint(r, 64)
		if err != nil {
			return nil, err
		}
		return instruction.I64Const{Value: v}, nil
	case opcode.LocalGet:
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.GetLocal{Index: uint32(idx)}, nil
	case opcode.LocalSet:
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.SetLocal{Index: uint32(idx)}, nil
	case opcode.LocalTee:
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.TeeLocal{Index: uint32(idx)}, nil
	case opcode.GlobalGet:
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.GetGlobal{Index: uint32(idx)}, nil
	case opcode.GlobalSet:
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.SetGlobal{Index: uint32(idx)}, nil
	case opcode.Call:
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.Call{Index: uint32(idx)}, nil
	case opcode.Br:
		depth, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.Br{Depth: uint32(depth)}, nil
	case opcode.BrIf:
		depth, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.BrIf{Depth: uint32(depth)}, nil
	case opcode.I32Load:
		align, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		offset, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.I32Load{Align: uint32(align), Offset: uint32(offset)}, nil
	case opcode.I32Store:
		align, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		offset, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return instruction.I32Store{Align: uint32(align), Offset: uint32(offset)}, nil
	case opcode.MemorySize:
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return instruction.MemorySize{}, nil
	case opcode.MemoryGrow:
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return instruction.MemoryGrow{}, nil
	default:
		return nil, fmt.Errorf("encoding: unsupported opcode 0x%02x", op)
	}
}

// readExpr decodes instructions until and including an End instruction at
// the current nesting level (this tool never emits or expects nested
// blocks in the bodies it builds, so a single End always terminates).
func readExpr(r *bytes.Reader) (module.Expr, error) {
	var instrs []instruction.Instruction
	for {
		instr, err := readInstruction(r)
		if err != nil {
			return module.Expr{}, err
		}
		instrs = append(instrs, instr)
		if _, ok := instr.(instruction.End); ok {
			break
		}
	}
	return module.Expr{Instrs: instrs}, nil
}

func writeExpr(buf *bytes.Buffer, expr module.Expr) error {
	for _, instr := range expr.Instrs {
		if err := writeInstruction(buf, instr); err != nil {
			return err
		}
	}
	return nil
}
