package encoding

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

func sampleModule() *module.Module {
	maxPages := uint32(10)
	startFn := uint32(1)
	return &module.Module{
		Version: 1,
		Type: module.TypeSection{
			Functions: []module.FunctionType{
				{Params: []types.ValueType{types.I32}},
				{Params: []types.ValueType{types.I32}, Results: []types.ValueType{types.I32}},
			},
		},
		Import: module.ImportSection{
			Imports: []module.Import{
				{Module: "env", Name: "abort", Descriptor: module.FunctionImport{Type: 0}},
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{1}},
		Table: module.TableSection{
			Tables: []module.TableType{{ElemType: 0x70, Limits: module.Limits{Min: 1}}},
		},
		Memory: module.MemorySection{
			Memories: []module.MemoryType{{Limits: module.Limits{Min: 2, Max: &maxPages}}},
		},
		Global: module.GlobalSection{
			Globals: []module.Global{
				{
					Type:    types.I32,
					Mutable: true,
					Init: module.Expr{Instrs: []instruction.Instruction{
						instruction.I32Const{Value: 100},
						instruction.End{},
					}},
				},
			},
		},
		Start: module.StartSection{FuncIndex: &startFn},
		Element: module.ElementSection{
			Segments: []module.ElementSegment{
				{
					TableIndex: 0,
					Offset: module.Expr{Instrs: []instruction.Instruction{
						instruction.I32Const{Value: 0},
						instruction.End{},
					}},
					Indices: []uint32{1},
				},
			},
		},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: "memory", Descriptor: module.ExportDescriptor{Type: module.MemoryExportType, Index: 0}},
				{Name: "_create", Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 1}},
			},
		},
		Code: module.CodeSection{
			Segments: []module.CodeSegment{
				{Code: mustEncode(module.CodeEntry{
					Func: module.Func{
						Locals: []module.LocalDecl{{Count: 1, Type: types.I32}},
						Expr: module.Expr{Instrs: []instruction.Instruction{
							instruction.GetLocal{Index: 0},
							instruction.End{},
						}},
					},
				})},
			},
		},
		Data: module.DataSection{
			Segments: []module.DataSegment{
				{
					Index: 0,
					Offset: module.Expr{Instrs: []instruction.Instruction{
						instruction.I32Const{Value: 1024},
						instruction.End{},
					}},
					Init: []byte("hello"),
				},
			},
		},
		Names: module.NameSection{
			Module:    "sample",
			Functions: []module.NameMap{{Index: 1, Name: "_create"}},
			Locals:    []module.LocalNameMap{{FuncIndex: 1, NameMap: module.NameMap{Index: 0, Name: "ptr"}}},
		},
	}
}

func mustEncode(entry module.CodeEntry) []byte {
	var buf bytes.Buffer
	if err := WriteCodeEntry(&buf, &entry); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestRoundtrip(t *testing.T) {
	m := sampleModule()

	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		t.Fatal(err)
	}

	m2, err := ReadModule(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(m, m2) {
		t.Fatalf("modules are not equal:\n%+v\n%+v", m, m2)
	}
}

func TestRoundtripCodeEntries(t *testing.T) {
	m := sampleModule()

	entries, err := CodeEntries(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(m.Code.Segments) {
		t.Fatalf("expected %d entries, got %d", len(m.Code.Segments), len(entries))
	}

	for i, e := range entries {
		var buf bytes.Buffer
		if err := WriteCodeEntry(&buf, e); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf.Bytes(), m.Code.Segments[i].Code) {
			t.Fatalf("segment %d: re-encoded bytes differ from original", i)
		}
	}
}

func TestReadModuleRejectsBadMagic(t *testing.T) {
	_, err := ReadModule(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00, 1, 0, 0, 0}))
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestWriteModuleOmitsEmptySections(t *testing.T) {
	m := &module.Module{Version: 1}
	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Len(), 8; got != want {
		t.Fatalf("expected an empty module to encode as just the header (%d bytes), got %d", want, got)
	}
}
