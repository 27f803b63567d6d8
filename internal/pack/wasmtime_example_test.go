//go:build cgo

package pack_test

import (
	"bytes"
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v3"

	"github.com/open-policy-agent/wasm-packer/internal/pack"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

// TestPackedInstanceRunsUnderWasmtime packs a deployer whose constructor
// writes a marker into linear memory, runs the packed module's _call under a
// real engine, and checks that both the constructor ran and the trampoline
// wrote the embedded runtime's address and length at the expected offsets.
// This is the only exerciser of wasmtime-go in the tree; everything else
// treats modules as bytes in, bytes out.
func TestPackedInstanceRunsUnderWasmtime(t *testing.T) {
	encodeBody := func(instrs ...instruction.Instruction) module.CodeSegment {
		var buf bytes.Buffer
		entry := &module.CodeEntry{Func: module.Func{Expr: module.Expr{Instrs: instrs}}}
		if err := encoding.WriteCodeEntry(&buf, entry); err != nil {
			t.Fatal(err)
		}
		return module.CodeSegment{Code: buf.Bytes()}
	}

	const marker = int32(42)

	deployer := &module.Module{
		Memory: module.MemorySection{Memories: []module.MemoryType{{Limits: module.Limits{Min: 1}}}},
		Type: module.TypeSection{
			Functions: []module.FunctionType{
				{Params: []types.ValueType{types.I32}},
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{0}},
		Code: module.CodeSection{
			Segments: []module.CodeSegment{
				// ctor(ptr): memory[ptr] = marker
				encodeBody(
					instruction.GetLocal{Index: 0},
					instruction.I32Const{Value: marker},
					instruction.I32Store{},
					instruction.End{},
				),
			},
		},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: "memory", Descriptor: module.ExportDescriptor{Type: module.MemoryExportType, Index: 0}},
				{Name: pack.CreateSymbol, Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 0}},
			},
		},
	}

	runtimeBytes := []byte{0xde, 0xad, 0xbe, 0xef, 0x00}

	packed, err := pack.PackInstance(runtimeBytes, deployer)
	if err != nil {
		t.Fatalf("PackInstance: %v", err)
	}

	var buf bytes.Buffer
	if err := encoding.WriteModule(&buf, packed); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)

	mod, err := wasmtime.NewModule(engine, buf.Bytes())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	instance, err := wasmtime.NewInstance(store, mod, nil)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	call := instance.GetExport(store, pack.CallSymbol).Func()
	if call == nil {
		t.Fatal("_call is not an exported function")
	}
	mem := instance.GetExport(store, "memory").Memory()
	if mem == nil {
		t.Fatal("memory is not exported")
	}

	const ptr = int32(1024)
	if _, err := call.Call(store, ptr); err != nil {
		t.Fatalf("_call trapped: %v", err)
	}

	data := mem.UnsafeData(store)
	readI32 := func(off int32) int32 {
		return int32(uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24)
	}

	if got := readI32(ptr); got != marker {
		t.Fatalf("expected constructor to write marker %d at %d, got %d", marker, ptr, got)
	}
	if got := readI32(ptr + 8); got != 0 {
		t.Fatalf("expected embedded runtime address 0, got %d", got)
	}
	if got := readI32(ptr + 12); got != int32(len(runtimeBytes)) {
		t.Fatalf("expected embedded runtime length %d, got %d", len(runtimeBytes), got)
	}
}
