package wasm

import (
	"testing"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

func TestAppendFunctionInternsSignature(t *testing.T) {
	m := &module.Module{}
	b := New(m)

	tpe := module.FunctionType{Params: []types.ValueType{types.I32}}
	entry := &module.CodeEntry{Func: module.Func{Expr: module.Expr{Instrs: []instruction.Instruction{instruction.End{}}}}}

	idx1, err := b.AppendFunction("f1", tpe, false, entry)
	if err != nil {
		t.Fatal(err)
	}
	idx2, err := b.AppendFunction("f2", tpe, false, entry)
	if err != nil {
		t.Fatal(err)
	}

	if idx1 != 0 || idx2 != 1 {
		t.Fatalf("expected combined indices 0 and 1, got %d and %d", idx1, idx2)
	}
	if len(m.Type.Functions) != 1 {
		t.Fatalf("expected a single interned signature, got %d", len(m.Type.Functions))
	}
	if len(m.Code.Segments) != 2 {
		t.Fatalf("expected two code segments, got %d", len(m.Code.Segments))
	}
}

func TestAppendFunctionExportsAndNames(t *testing.T) {
	m := &module.Module{
		Import: module.ImportSection{
			Imports: []module.Import{{Module: "env", Name: "abort", Descriptor: module.FunctionImport{Type: 0}}},
		},
	}
	b := New(m)

	tpe := module.FunctionType{}
	entry := &module.CodeEntry{Func: module.Func{Expr: module.Expr{Instrs: []instruction.Instruction{instruction.End{}}}}}

	idx, err := b.AppendFunction("_call", tpe, true, entry)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("expected combined index 1 (after the single import), got %d", idx)
	}
	if len(m.Export.Exports) != 1 || m.Export.Exports[0].Name != "_call" {
		t.Fatalf("expected a single _call export, got %+v", m.Export.Exports)
	}
	if len(m.Names.Functions) != 1 || m.Names.Functions[0].Index != idx {
		t.Fatalf("expected a name entry at index %d, got %+v", idx, m.Names.Functions)
	}
}

func TestLowestFreeDataSegmentOffset(t *testing.T) {
	m := &module.Module{
		Data: module.DataSection{
			Segments: []module.DataSegment{
				{
					Offset: module.Expr{Instrs: []instruction.Instruction{instruction.I32Const{Value: 1024}}},
					Init:   make([]byte, 100),
				},
			},
		},
	}
	offset, err := LowestFreeDataSegmentOffset(m)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 1124 {
		t.Fatalf("expected 1124, got %d", offset)
	}
}

func TestLowestFreeDataSegmentOffsetEmpty(t *testing.T) {
	offset, err := LowestFreeDataSegmentOffset(&module.Module{})
	if err != nil {
		t.Fatal(err)
	}
	if offset != 0 {
		t.Fatalf("expected 0, got %d", offset)
	}
}

func TestLowestFreeDataSegmentOffsetRejectsComplexExpr(t *testing.T) {
	m := &module.Module{
		Data: module.DataSection{
			Segments: []module.DataSegment{
				{Offset: module.Expr{Instrs: []instruction.Instruction{instruction.GetGlobal{Index: 0}}}},
			},
		},
	}
	if _, err := LowestFreeDataSegmentOffset(m); err == nil {
		t.Fatal("expected an error for a non-constant offset expression")
	}
}
