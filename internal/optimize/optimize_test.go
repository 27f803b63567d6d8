package optimize

import (
	"bytes"
	"testing"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
)

// buildModule assembles a module with three functions: used (calls helper),
// helper, and dead (unreachable from any kept export).
func buildModule(t *testing.T) *module.Module {
	t.Helper()

	sig := module.FunctionType{}
	encode := func(instrs ...instruction.Instruction) module.CodeSegment {
		var buf bytes.Buffer
		entry := &module.CodeEntry{Func: module.Func{Expr: module.Expr{Instrs: instrs}}}
		if err := encoding.WriteCodeEntry(&buf, entry); err != nil {
			t.Fatal(err)
		}
		return module.CodeSegment{Code: buf.Bytes()}
	}

	m := &module.Module{
		Type: module.TypeSection{Functions: []module.FunctionType{sig}},
		Function: module.FunctionSection{
			TypeIndices: []uint32{0, 0, 0}, // used=0, helper=1, dead=2
		},
		Code: module.CodeSection{
			Segments: []module.CodeSegment{
				encode(instruction.Call{Index: 1}, instruction.End{}), // used -> helper
				encode(instruction.End{}),                             // helper
				encode(instruction.End{}),                             // dead
			},
		},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: "used", Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 0}},
				{Name: "dead", Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 2}},
			},
		},
		Names: module.NameSection{
			Functions: []module.NameMap{
				{Index: 0, Name: "used"},
				{Index: 1, Name: "helper"},
				{Index: 2, Name: "dead"},
			},
		},
	}
	return m
}

func TestPruneKeepsReachableOnly(t *testing.T) {
	m := buildModule(t)

	out, err := Prune(m, []string{"used"})
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Code.Segments) != 2 {
		t.Fatalf("expected 2 surviving functions (used, helper), got %d", len(out.Code.Segments))
	}
	if len(out.Export.Exports) != 1 || out.Export.Exports[0].Name != "used" {
		t.Fatalf("expected only the 'used' export to survive, got %+v", out.Export.Exports)
	}
	if len(out.Names.Functions) != 2 {
		t.Fatalf("expected 2 surviving names, got %+v", out.Names.Functions)
	}

	entries, err := encoding.CodeEntries(out)
	if err != nil {
		t.Fatal(err)
	}
	call, ok := entries[0].Func.Expr.Instrs[0].(instruction.Call)
	if !ok {
		t.Fatalf("expected first instruction of 'used' to remain a Call, got %T", entries[0].Func.Expr.Instrs[0])
	}
	if call.Index != 1 {
		t.Fatalf("expected remapped call target 1 (helper is still second), got %d", call.Index)
	}
}

func TestPruneUnknownExportErrors(t *testing.T) {
	m := buildModule(t)
	if _, err := Prune(m, []string{"nonexistent"}); err == nil {
		t.Fatal("expected an error for an unknown export name")
	}
}

func TestPruneKeepingDeadOnlyDropsUsed(t *testing.T) {
	m := buildModule(t)
	out, err := Prune(m, []string{"dead"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Code.Segments) != 1 {
		t.Fatalf("expected only 'dead' to survive, got %d functions", len(out.Code.Segments))
	}
	if out.Export.Exports[0].Descriptor.Index != 0 {
		t.Fatalf("expected dead's export remapped to index 0, got %d", out.Export.Exports[0].Descriptor.Index)
	}
}
