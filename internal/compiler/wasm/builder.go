// Package wasm provides a small, general-purpose builder for appending
// functions to an existing module: signature interning, combined function
// index bookkeeping, and data/element segment placement. The packer is its
// only caller today, using it to append the trampoline it synthesizes, but
// none of it is packer-specific.
package wasm

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
)

// Builder mutates a module.Module in place, keeping the Type, Function,
// Code, Export, and Names sections consistent with each other as functions
// are appended.
type Builder struct {
	module *module.Module
}

// New returns a Builder that appends functions to m.
func New(m *module.Module) *Builder {
	return &Builder{module: m}
}

// AppendFunction declares a new locally-defined function with signature
// tpe and body entry, optionally exporting it under name, and returns its
// combined function index. name is also recorded in the debug-name section
// if not already present under that index.
func (b *Builder) AppendFunction(name string, tpe module.FunctionType, export bool, entry *module.CodeEntry) (uint32, error) {
	var buf bytes.Buffer
	if err := encoding.WriteCodeEntry(&buf, entry); err != nil {
		return 0, errors.Wrap(err, "encode function body")
	}

	typeIndex := b.AppendFunctionType(tpe)
	b.module.Function.TypeIndices = append(b.module.Function.TypeIndices, typeIndex)
	b.module.Code.Segments = append(b.module.Code.Segments, module.CodeSegment{Code: buf.Bytes()})

	idx := uint32(len(b.module.Function.TypeIndices)-1) + uint32(b.FunctionImportCount())

	if export {
		b.module.Export.Exports = append(b.module.Export.Exports, module.Export{
			Name: name,
			Descriptor: module.ExportDescriptor{
				Type:  module.FunctionExportType,
				Index: idx,
			},
		})
	}

	if name != "" {
		var found bool
		for _, nm := range b.module.Names.Functions {
			if nm.Index == idx {
				found = true
				break
			}
		}
		if !found {
			b.module.Names.Functions = append(b.module.Names.Functions, module.NameMap{Index: idx, Name: name})
		}
	}

	return idx, nil
}

// AppendFunctionType interns tpe into the type section, returning the index
// of an existing equal signature if one is already present.
func (b *Builder) AppendFunctionType(tpe module.FunctionType) uint32 {
	for i, other := range b.module.Type.Functions {
		if tpe.Equal(other) {
			return uint32(i)
		}
	}
	b.module.Type.Functions = append(b.module.Type.Functions, tpe)
	return uint32(len(b.module.Type.Functions) - 1)
}

// FunctionImportCount returns the number of function-kind imports, the
// offset between a Function-section-relative index and a combined index.
func (b *Builder) FunctionImportCount() int {
	return b.module.FunctionImportCount()
}

// LowestFreeDataSegmentOffset returns the address immediately past the end
// of every existing data segment, assuming each occupies
// [offset, offset+len(Init)) and that the module's data segments do not
// overlap. Every segment's offset expression must be a single I32Const
// instruction; anything else is rejected as unsupported.
func LowestFreeDataSegmentOffset(m *module.Module) (int32, error) {
	var offset int32
	for i := range m.Data.Segments {
		addr, err := constOffset(m.Data.Segments[i].Offset)
		if err != nil {
			return 0, err
		}
		addr += int32(len(m.Data.Segments[i].Init))
		if addr > offset {
			offset = addr
		}
	}
	return offset, nil
}

// LowestFreeElementSegmentOffset is LowestFreeDataSegmentOffset's table
// analog: the address immediately past every existing element segment.
func LowestFreeElementSegmentOffset(m *module.Module) (int32, error) {
	var offset int32
	for _, seg := range m.Element.Segments {
		addr, err := constOffset(seg.Offset)
		if err != nil {
			return 0, err
		}
		addr += int32(len(seg.Indices))
		if addr > offset {
			offset = addr
		}
	}
	return offset, nil
}

func constOffset(expr module.Expr) (int32, error) {
	if len(expr.Instrs) != 1 {
		return 0, errors.New("unsupported segment offset expression")
	}
	instr, ok := expr.Instrs[0].(instruction.I32Const)
	if !ok {
		return 0, errors.New("unsupported segment offset expression")
	}
	return instr.Value, nil
}
