// Package optimize prunes a module down to a requested set of exports and
// whatever functions they transitively call, the dead-code elimination step
// that upstream tooling is expected to run before handing either half of a
// split module (a runtime half and a deployer half) to the packer.
package optimize

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
)

// Prune returns a copy of m retaining only the exports named in keepExports
// and the local functions transitively reachable from them through Call
// instructions. Every other export is dropped. Imports, tables, memories,
// globals, element segments, and data segments are left untouched — this
// pass only eliminates dead code in the function/code index space, which is
// what the packer's two callers (runtime-module and deployer-module
// preparation) need.
//
// Reachability starts from the combined function index of each kept
// export; a requested export name that the module does not define, or that
// does not name a function, is an error.
func Prune(m *module.Module, keepExports []string) (*module.Module, error) {
	if m == nil {
		return nil, errors.New("optimize: nil module")
	}

	keep := make(map[string]bool, len(keepExports))
	for _, name := range keepExports {
		keep[name] = true
	}

	keptExports := make([]module.Export, 0, len(keepExports))
	roots := make(map[uint32]bool)
	for _, exp := range m.Export.Exports {
		if !keep[exp.Name] {
			continue
		}
		if exp.Descriptor.Type != module.FunctionExportType {
			return nil, errors.Errorf("optimize: export %q is not a function", exp.Name)
		}
		keptExports = append(keptExports, exp)
		roots[exp.Descriptor.Index] = true
	}
	for name := range keep {
		if !exportedAs(keptExports, name) {
			return nil, errors.Errorf("optimize: no such export %q", name)
		}
	}

	importCount := uint32(m.FunctionImportCount())

	entries, err := encoding.CodeEntries(m)
	if err != nil {
		return nil, errors.Wrap(err, "optimize: decode code section")
	}

	reachable := map[uint32]bool{}
	var frontier []uint32
	for idx := range roots {
		frontier = append(frontier, idx)
	}
	for len(frontier) > 0 {
		idx := frontier[0]
		frontier = frontier[1:]
		if reachable[idx] {
			continue
		}
		reachable[idx] = true
		if idx < importCount {
			continue // imported function, no local body to scan
		}
		local := idx - importCount
		if int(local) >= len(entries) {
			return nil, fmt.Errorf("optimize: function index %d out of range", idx)
		}
		for _, callee := range calledIndices(entries[local].Func.Expr) {
			if !reachable[callee] {
				frontier = append(frontier, callee)
			}
		}
	}

	var keptLocal []uint32
	for idx := importCount; int(idx-importCount) < len(entries); idx++ {
		if reachable[idx] {
			keptLocal = append(keptLocal, idx)
		}
	}
	sort.Slice(keptLocal, func(i, j int) bool { return keptLocal[i] < keptLocal[j] })

	remap := make(map[uint32]uint32, len(keptLocal))
	for newLocal, oldIdx := range keptLocal {
		remap[oldIdx] = importCount + uint32(newLocal)
	}

	out := &module.Module{
		Version: m.Version,
		Type:    m.Type,
		Import:  m.Import,
		Table:   m.Table,
		Memory:  m.Memory,
		Global:  m.Global,
		Element: m.Element,
		Data:    m.Data,
	}

	for _, oldIdx := range keptLocal {
		local := oldIdx - importCount
		out.Function.TypeIndices = append(out.Function.TypeIndices, m.Function.TypeIndices[local])

		entry := entries[local]
		remapExpr(entry.Func.Expr, remap)

		var buf bytes.Buffer
		if err := encoding.WriteCodeEntry(&buf, entry); err != nil {
			return nil, errors.Wrap(err, "optimize: re-encode function body")
		}
		out.Code.Segments = append(out.Code.Segments, module.CodeSegment{Code: buf.Bytes()})
	}

	for _, exp := range keptExports {
		newIdx, ok := remapIndex(exp.Descriptor.Index, importCount, remap)
		if !ok {
			return nil, fmt.Errorf("optimize: export %q points at an unreachable function", exp.Name)
		}
		out.Export.Exports = append(out.Export.Exports, module.Export{
			Name:       exp.Name,
			Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: newIdx},
		})
	}

	if m.Start.FuncIndex != nil {
		if newIdx, ok := remapIndex(*m.Start.FuncIndex, importCount, remap); ok {
			out.Start.FuncIndex = &newIdx
		}
	}

	for _, nm := range m.Names.Functions {
		if newIdx, ok := remapIndex(nm.Index, importCount, remap); ok {
			out.Names.Functions = append(out.Names.Functions, module.NameMap{Index: newIdx, Name: nm.Name})
		}
	}
	for _, l := range m.Names.Locals {
		if newIdx, ok := remapIndex(l.FuncIndex, importCount, remap); ok {
			out.Names.Locals = append(out.Names.Locals, module.LocalNameMap{FuncIndex: newIdx, NameMap: l.NameMap})
		}
	}
	out.Names.Module = m.Names.Module
	out.Customs = m.Customs

	return out, nil
}

func exportedAs(exports []module.Export, name string) bool {
	for _, e := range exports {
		if e.Name == name {
			return true
		}
	}
	return false
}

func remapIndex(oldIdx, importCount uint32, remap map[uint32]uint32) (uint32, bool) {
	if oldIdx < importCount {
		return oldIdx, true
	}
	newIdx, ok := remap[oldIdx]
	return newIdx, ok
}

func calledIndices(expr module.Expr) []uint32 {
	var out []uint32
	for _, instr := range expr.Instrs {
		if call, ok := instr.(instruction.Call); ok {
			out = append(out, call.Index)
		}
	}
	return out
}

func remapExpr(expr module.Expr, remap map[uint32]uint32) {
	for i, instr := range expr.Instrs {
		if call, ok := instr.(instruction.Call); ok {
			if newIdx, ok := remap[call.Index]; ok {
				expr.Instrs[i] = instruction.Call{Index: newIdx}
			}
		}
	}
}
