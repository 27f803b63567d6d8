package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/open-policy-agent/wasm-packer/internal/pack"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

func encodeSourceModule(t *testing.T) []byte {
	t.Helper()

	encode := func(instrs ...instruction.Instruction) module.CodeSegment {
		var buf bytes.Buffer
		entry := &module.CodeEntry{Func: module.Func{Expr: module.Expr{Instrs: instrs}}}
		if err := encoding.WriteCodeEntry(&buf, entry); err != nil {
			t.Fatal(err)
		}
		return module.CodeSegment{Code: buf.Bytes()}
	}

	m := &module.Module{
		Import: module.ImportSection{
			Imports: []module.Import{
				{Module: "env", Name: "memory", Descriptor: module.MemoryImport{Type: module.MemoryType{Limits: module.Limits{Min: 1}}}},
			},
		},
		Type: module.TypeSection{
			Functions: []module.FunctionType{
				{},
				{Params: []types.ValueType{types.I32}},
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{0, 1}},
		Code: module.CodeSection{
			Segments: []module.CodeSegment{
				encode(instruction.End{}),
				encode(instruction.End{}),
			},
		},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: pack.CallSymbol, Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 0}},
				{Name: pack.CreateSymbol, Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 1}},
			},
		},
	}

	var buf bytes.Buffer
	if err := encoding.WriteModule(&buf, m); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDoPackEndToEnd(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.wasm")
	if err := os.WriteFile(sourcePath, encodeSourceModule(t), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "deployer.wasm")
	params := newPackParams()
	params.output = outPath

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	log := logrus.New()
	log.SetOutput(io.Discard)

	if err := doPack(cmd, sourcePath, params, log); err != nil {
		t.Fatal(err)
	}

	bs, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	packed, err := encoding.ReadModule(bytes.NewReader(bs))
	if err != nil {
		t.Fatal(err)
	}

	var foundCall, foundCreate bool
	for _, exp := range packed.Export.Exports {
		switch exp.Name {
		case pack.CallSymbol:
			foundCall = true
		case pack.CreateSymbol:
			foundCreate = true
		}
	}
	if !foundCall {
		t.Fatal("expected a _call export in the packed output")
	}
	if foundCreate {
		t.Fatal("expected no _create export in the packed output")
	}
}
