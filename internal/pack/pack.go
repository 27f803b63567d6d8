// Package pack implements the packer: the transformation that takes a
// serialized runtime module and a parsed deployer module and rewrites the
// deployer so that its `_call` runs the original constructor, embeds the
// runtime bytes as a new data segment, and writes the resulting
// (pointer, length) pair into the descriptor the host reads back.
package pack

import (
	"github.com/pkg/errors"

	wasmbuilder "github.com/open-policy-agent/wasm-packer/internal/compiler/wasm"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

// CreateSymbol and CallSymbol are the two export names this tool and the
// host runtime recognize: the constructor and the callable.
const (
	CreateSymbol = "_create"
	CallSymbol   = "_call"
)

// ErrorKind enumerates the packer's closed set of structural errors.
type ErrorKind int

const (
	_ ErrorKind = iota
	MalformedModule
	NoTypeSection
	NoExportSection
	NoCodeSection
	InvalidCreateSignature
	NoCreateSymbol
	InvalidCreateMember
)

func (k ErrorKind) Error() string {
	switch k {
	case MalformedModule:
		return "malformed module"
	case NoTypeSection:
		return "no type section"
	case NoExportSection:
		return "no export section"
	case NoCodeSection:
		return "no code section"
	case InvalidCreateSignature:
		return "invalid _create signature"
	case NoCreateSymbol:
		return "no _create export"
	case InvalidCreateMember:
		return "_create export is not a function"
	default:
		return "unknown pack error"
	}
}

// Sentinel errors, one per ErrorKind, for comparison with errors.Is. Wrapped
// with github.com/pkg/errors.Wrap at each layer that adds positional
// context on the way back to the caller.
var (
	ErrMalformedModule        error = MalformedModule
	ErrNoTypeSection          error = NoTypeSection
	ErrNoExportSection        error = NoExportSection
	ErrNoCodeSection          error = NoCodeSection
	ErrInvalidCreateSignature error = InvalidCreateSignature
	ErrNoCreateSymbol         error = NoCreateSymbol
	ErrInvalidCreateMember    error = InvalidCreateMember
)

// trampolineSignature is the constructor's and the trampoline's required
// shape: a single i32 parameter (the descriptor pointer), no result.
var trampolineSignature = module.FunctionType{Params: []types.ValueType{types.I32}}

// PackInstance rewrites deployer in place (and returns it) so that its
// _create export is replaced by a _call export pointing at a new
// trampoline function. runtimeBytes is embedded as a new data segment; the
// trampoline invokes the original constructor and then writes the segment's
// address and length into the descriptor's result fields (offsets 8 and
// 12). runtimeBytes is treated as opaque; the packer never decodes it.
func PackInstance(runtimeBytes []byte, deployer *module.Module) (*module.Module, error) {
	constructorIdx, err := resolveConstructor(deployer)
	if err != nil {
		return nil, err
	}

	codeDataAddress, err := appendRuntimeDataSegment(deployer, runtimeBytes)
	if err != nil {
		return nil, err
	}

	trampolineIdx, err := appendTrampoline(deployer, constructorIdx, codeDataAddress, len(runtimeBytes))
	if err != nil {
		return nil, errors.Wrap(err, "pack: emit trampoline")
	}

	rewireExports(deployer, trampolineIdx)

	return deployer, nil
}

// resolveConstructor finds the _create export, validates that it targets a
// function of signature (i32) -> (), and returns its combined function
// index.
func resolveConstructor(m *module.Module) (uint32, error) {
	if m.Export.Exports == nil {
		return 0, errors.Wrap(ErrNoExportSection, "pack: resolve constructor")
	}

	var combinedIndex uint32
	var found bool
	for _, exp := range m.Export.Exports {
		if exp.Name == CreateSymbol {
			if exp.Descriptor.Type != module.FunctionExportType {
				return 0, errors.Wrapf(ErrInvalidCreateMember, "pack: export %q", CreateSymbol)
			}
			combinedIndex = exp.Descriptor.Index
			found = true
			break
		}
	}
	if !found {
		return 0, errors.Wrap(ErrNoCreateSymbol, "pack: resolve constructor")
	}

	importCount := uint32(m.FunctionImportCount())
	if combinedIndex < importCount {
		return 0, errors.Wrapf(ErrInvalidCreateMember, "pack: %q resolves to an imported function", CreateSymbol)
	}
	localIndex := combinedIndex - importCount

	if m.Function.TypeIndices == nil {
		return 0, errors.Wrap(ErrNoCodeSection, "pack: resolve constructor")
	}
	if int(localIndex) >= len(m.Function.TypeIndices) {
		return 0, errors.Wrapf(ErrMalformedModule, "pack: function index %d out of range", combinedIndex)
	}
	typeIndex := m.Function.TypeIndices[localIndex]

	if m.Type.Functions == nil {
		return 0, errors.Wrap(ErrNoTypeSection, "pack: resolve constructor")
	}
	if int(typeIndex) >= len(m.Type.Functions) {
		return 0, errors.Wrapf(ErrMalformedModule, "pack: type index %d out of range", typeIndex)
	}
	sig := m.Type.Functions[typeIndex]

	if !sig.Equal(trampolineSignature) {
		return 0, errors.Wrapf(ErrInvalidCreateSignature, "pack: %q has signature %+v", CreateSymbol, sig)
	}

	return combinedIndex, nil
}

// appendRuntimeDataSegment embeds runtimeBytes as a new data segment,
// placed per §4.3.2 at k + (l+4) - l%4, where k is the last existing
// segment's offset and l its length: past that segment's end with 1 to 4
// bytes of padding, which is 4-byte aligned when k is. It returns the
// chosen offset.
//
// If the last segment's offset expression is not a single I32Const, the
// offset falls back to 0 — matching the Rust source this tool generalizes
// from. This can overlap earlier segments; callers relying on safety here
// should reject such deployers themselves before calling PackInstance.
func appendRuntimeDataSegment(m *module.Module, runtimeBytes []byte) (int32, error) {
	var memIndex uint32
	var offset int32

	if n := len(m.Data.Segments); n > 0 {
		last := m.Data.Segments[n-1]
		memIndex = last.Index
		if k, ok := constI32Offset(last.Offset); ok {
			l := int32(len(last.Init))
			offset = k + (l+4) - l%4
		}
	}

	m.Data.Segments = append(m.Data.Segments, module.DataSegment{
		Index: memIndex,
		Offset: module.Expr{Instrs: []instruction.Instruction{
			instruction.I32Const{Value: offset},
			instruction.End{},
		}},
		Init: runtimeBytes,
	})

	return offset, nil
}

func constI32Offset(expr module.Expr) (int32, bool) {
	if len(expr.Instrs) == 0 {
		return 0, false
	}
	c, ok := expr.Instrs[0].(instruction.I32Const)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// appendTrampoline synthesizes and appends the new _call body described in
// §4.3.3, returning its combined function index.
func appendTrampoline(m *module.Module, constructorIdx uint32, codeDataAddress int32, runtimeLen int) (uint32, error) {
	body := &module.CodeEntry{
		Func: module.Func{
			Expr: module.Expr{Instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				instruction.Call{Index: constructorIdx},
				instruction.GetLocal{Index: 0},
				instruction.I32Const{Value: codeDataAddress},
				instruction.I32Store{Offset: 8},
				instruction.GetLocal{Index: 0},
				instruction.I32Const{Value: int32(runtimeLen)},
				instruction.I32Store{Offset: 12},
				instruction.End{},
			}},
		},
	}

	b := wasmbuilder.New(m)
	return b.AppendFunction("", trampolineSignature, false, body)
}

// rewireExports renames every export named _create to _call, pointing it
// at the trampoline. Per the open question in §9, every matching export is
// renamed, not just the first.
func rewireExports(m *module.Module, trampolineIdx uint32) {
	for i, exp := range m.Export.Exports {
		if exp.Name == CreateSymbol {
			m.Export.Exports[i] = module.Export{
				Name:       CallSymbol,
				Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: trampolineIdx},
			}
		}
	}
}
