// Package encoding is the binary codec between the wire format and the
// in-memory module.Module / instruction trees. Per the packer's own spec
// this is an external collaborator — the packer treats runtime_bytes as
// opaque and never decodes it; it reaches this package only through the
// builder, to encode the trampoline's body — but a reference
// implementation lives here so the test suite can assert real round trips
// (P3/P4) instead of mocking the serializer away.
package encoding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/open-policy-agent/wasm-packer/internal/wasm/module"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d}

const version1 = 1

const (
	sectionCustom   = 0
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionTable    = 4
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionStart    = 8
	sectionElement  = 9
	sectionCode     = 10
	sectionData     = 11
)

const (
	externalKindFunc   = 0
	externalKindTable  = 1
	externalKindMemory = 2
	externalKindGlobal = 3
)

// ReadModule decodes a module from its binary form.
func ReadModule(r io.Reader) (*module.Module, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bs) < 8 || !bytes.Equal(bs[:4], magic) {
		return nil, fmt.Errorf("encoding: missing module header")
	}
	m := &module.Module{Version: uint32(bs[4]) | uint32(bs[5])<<8 | uint32(bs[6])<<16 | uint32(bs[7])<<24}

	rd := bytes.NewReader(bs[8:])
	for {
		id, err := rd.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		size, err := readUvarint(rd)
		if err != nil {
			return nil, err
		}
		payload, err := readBytes(rd, size)
		if err != nil {
			return nil, err
		}
		sr := bytes.NewReader(payload)
		if err := readSection(m, id, sr); err != nil {
			return nil, fmt.Errorf("encoding: section 0x%02x: %w", id, err)
		}
	}
	return m, nil
}

func readSection(m *module.Module, id byte, r *bytes.Reader) error {
	switch id {
	case sectionCustom:
		return readCustomSection(m, r)
	case sectionType:
		return readTypeSection(m, r)
	case sectionImport:
		return readImportSection(m, r)
	case sectionFunction:
		return readFunctionSection(m, r)
	case sectionTable:
		return readTableSection(m, r)
	case sectionMemory:
		return readMemorySection(m, r)
	case sectionGlobal:
		return readGlobalSection(m, r)
	case sectionExport:
		return readExportSection(m, r)
	case sectionStart:
		return readStartSection(m, r)
	case sectionElement:
		return readElementSection(m, r)
	case sectionCode:
		return readCodeSection(m, r)
	case sectionData:
		return readDataSection(m, r)
	default:
		return fmt.Errorf("unknown section id")
	}
}

func readValueType(r *bytes.Reader) (types.ValueType, error) {
	b, err := r.ReadByte()
	return types.ValueType(b), err
}

func readCustomSection(m *module.Module, r *bytes.Reader) error {
	name, err := readName(r)
	if err != nil {
		return err
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if name == "name" {
		names, err := readNameSection(rest)
		if err != nil {
			return err
		}
		m.Names = names
		return nil
	}
	m.Customs = append(m.Customs, module.CustomSection{Name: name, Data: rest})
	return nil
}

func readTypeSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("unsupported type form 0x%02x", form)
		}
		params, err := readValueTypeVec(r)
		if err != nil {
			return err
		}
		results, err := readValueTypeVec(r)
		if err != nil {
			return err
		}
		m.Type.Functions = append(m.Type.Functions, module.FunctionType{Params: params, Results: results})
	}
	return nil
}

func readValueTypeVec(r *bytes.Reader) ([]types.ValueType, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]types.ValueType, n)
	for i := range out {
		vt, err := readValueType(r)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

func readLimits(r *bytes.Reader) (module.Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return module.Limits{}, err
	}
	min, err := readUvarint(r)
	if err != nil {
		return module.Limits{}, err
	}
	lim := module.Limits{Min: uint32(min)}
	if flags&0x01 != 0 {
		max, err := readUvarint(r)
		if err != nil {
			return module.Limits{}, err
		}
		m32 := uint32(max)
		lim.Max = &m32
	}
	return lim, nil
}

func readImportSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		modName, err := readName(r)
		if err != nil {
			return err
		}
		field, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		imp := module.Import{Module: modName, Name: field}
		switch kind {
		case externalKindFunc:
			idx, err := readUvarint(r)
			if err != nil {
				return err
			}
			imp.Descriptor = module.FunctionImport{Type: uint32(idx)}
		case externalKindTable:
			elemType, err := r.ReadByte()
			if err != nil {
				return err
			}
			lim, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.Descriptor = module.TableImport{Type: module.TableType{ElemType: elemType, Limits: lim}}
		case externalKindMemory:
			lim, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.Descriptor = module.MemoryImport{Type: module.MemoryType{Limits: lim}}
		case externalKindGlobal:
			vt, err := readValueType(r)
			if err != nil {
				return err
			}
			mut, err := r.ReadByte()
			if err != nil {
				return err
			}
			imp.Descriptor = module.GlobalImport{Type: vt, Mutable: mut != 0}
		default:
			return fmt.Errorf("unknown import kind 0x%02x", kind)
		}
		m.Import.Imports = append(m.Import.Imports, imp)
	}
	return nil
}

func readFunctionSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		idx, err := readUvarint(r)
		if err != nil {
			return err
		}
		m.Function.TypeIndices = append(m.Function.TypeIndices, uint32(idx))
	}
	return nil
}

func readTableSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		elemType, err := r.ReadByte()
		if err != nil {
			return err
		}
		lim, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Table.Tables = append(m.Table.Tables, module.TableType{ElemType: elemType, Limits: lim})
	}
	return nil
}

func readMemorySection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		lim, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memory.Memories = append(m.Memory.Memories, module.MemoryType{Limits: lim})
	}
	return nil
}

func readGlobalSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		vt, err := readValueType(r)
		if err != nil {
			return err
		}
		mut, err := r.ReadByte()
		if err != nil {
			return err
		}
		init, err := readExpr(r)
		if err != nil {
			return err
		}
		m.Global.Globals = append(m.Global.Globals, module.Global{Type: vt, Mutable: mut != 0, Init: init})
	}
	return nil
}

func readExportSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := readUvarint(r)
		if err != nil {
			return err
		}
		m.Export.Exports = append(m.Export.Exports, module.Export{
			Name: name,
			Descriptor: module.ExportDescriptor{
				Type:  exportDescriptorType(kind),
				Index: uint32(idx),
			},
		})
	}
	return nil
}

func exportDescriptorType(kind byte) module.ExportDescriptorType {
	switch kind {
	case externalKindTable:
		return module.TableExportType
	case externalKindMemory:
		return module.MemoryExportType
	case externalKindGlobal:
		return module.GlobalExportType
	default:
		return module.FunctionExportType
	}
}

func readStartSection(m *module.Module, r *bytes.Reader) error {
	idx, err := readUvarint(r)
	if err != nil {
		return err
	}
	v := uint32(idx)
	m.Start.FuncIndex = &v
	return nil
}

func readElementSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		tableIdx, err := readUvarint(r)
		if err != nil {
			return err
		}
		offset, err := readExpr(r)
		if err != nil {
			return err
		}
		count, err := readUvarint(r)
		if err != nil {
			return err
		}
		indices := make([]uint32, count)
		for j := range indices {
			idx, err := readUvarint(r)
			if err != nil {
				return err
			}
			indices[j] = uint32(idx)
		}
		m.Element.Segments = append(m.Element.Segments, module.ElementSegment{
			TableIndex: uint32(tableIdx),
			Offset:     offset,
			Indices:    indices,
		})
	}
	return nil
}

func readCodeSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		size, err := readUvarint(r)
		if err != nil {
			return err
		}
		body, err := readBytes(r, size)
		if err != nil {
			return err
		}
		m.Code.Segments = append(m.Code.Segments, module.CodeSegment{Code: body})
	}
	return nil
}

func readDataSection(m *module.Module, r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		memIdx, err := readUvarint(r)
		if err != nil {
			return err
		}
		offset, err := readExpr(r)
		if err != nil {
			return err
		}
		size, err := readUvarint(r)
		if err != nil {
			return err
		}
		init, err := readBytes(r, size)
		if err != nil {
			return err
		}
		m.Data.Segments = append(m.Data.Segments, module.DataSegment{
			Index:  uint32(memIdx),
			Offset: offset,
			Init:   init,
		})
	}
	return nil
}

func readNameSection(payload []byte) (module.NameSection, error) {
	r := bytes.NewReader(payload)
	var names module.NameSection
	for {
		subID, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return module.NameSection{}, err
		}
		size, err := readUvarint(r)
		if err != nil {
			return module.NameSection{}, err
		}
		payload, err := readBytes(r, size)
		if err != nil {
			return module.NameSection{}, err
		}
		sr := bytes.NewReader(payload)
		switch subID {
		case 0:
			name, err := readName(sr)
			if err != nil {
				return module.NameSection{}, err
			}
			names.Module = name
		case 1:
			nm, err := readNameMapVec(sr)
			if err != nil {
				return module.NameSection{}, err
			}
			names.Functions = nm
		case 2:
			n, err := readUvarint(sr)
			if err != nil {
				return module.NameSection{}, err
			}
			for i := uint64(0); i < n; i++ {
				fn, err := readUvarint(sr)
				if err != nil {
					return module.NameSection{}, err
				}
				nm, err := readNameMapVec(sr)
				if err != nil {
					return module.NameSection{}, err
				}
				for _, e := range nm {
					names.Locals = append(names.Locals, module.LocalNameMap{FuncIndex: uint32(fn), NameMap: e})
				}
			}
		}
	}
	return names, nil
}

func readNameMapVec(r *bytes.Reader) ([]module.NameMap, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]module.NameMap, n)
	for i := range out {
		idx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		out[i] = module.NameMap{Index: uint32(idx), Name: name}
	}
	return out, nil
}

// WriteModule encodes m in binary form to w.
func WriteModule(w io.Writer, m *module.Module) error {
	var buf bytes.Buffer
	buf.Write(magic)
	version := m.Version
	if version == 0 {
		version = version1
	}
	buf.WriteByte(byte(version))
	buf.WriteByte(byte(version >> 8))
	buf.WriteByte(byte(version >> 16))
	buf.WriteByte(byte(version >> 24))

	if len(m.Type.Functions) > 0 {
		if err := writeSection(&buf, sectionType, writeTypeSection(m)); err != nil {
			return err
		}
	}
	if len(m.Import.Imports) > 0 {
		if err := writeSection(&buf, sectionImport, writeImportSection(m)); err != nil {
			return err
		}
	}
	if len(m.Function.TypeIndices) > 0 {
		if err := writeSection(&buf, sectionFunction, writeFunctionSection(m)); err != nil {
			return err
		}
	}
	if len(m.Table.Tables) > 0 {
		if err := writeSection(&buf, sectionTable, writeTableSection(m)); err != nil {
			return err
		}
	}
	if len(m.Memory.Memories) > 0 {
		if err := writeSection(&buf, sectionMemory, writeMemorySection(m)); err != nil {
			return err
		}
	}
	if len(m.Global.Globals) > 0 {
		payload, err := writeGlobalSection(m)
		if err != nil {
			return err
		}
		if err := writeSection(&buf, sectionGlobal, payload); err != nil {
			return err
		}
	}
	if len(m.Export.Exports) > 0 {
		if err := writeSection(&buf, sectionExport, writeExportSection(m)); err != nil {
			return err
		}
	}
	if m.Start.FuncIndex != nil {
		if err := writeSection(&buf, sectionStart, writeStartSection(m)); err != nil {
			return err
		}
	}
	if len(m.Element.Segments) > 0 {
		payload, err := writeElementSection(m)
		if err != nil {
			return err
		}
		if err := writeSection(&buf, sectionElement, payload); err != nil {
			return err
		}
	}
	if len(m.Code.Segments) > 0 {
		if err := writeSection(&buf, sectionCode, writeCodeSection(m)); err != nil {
			return err
		}
	}
	if len(m.Data.Segments) > 0 {
		payload, err := writeDataSection(m)
		if err != nil {
			return err
		}
		if err := writeSection(&buf, sectionData, payload); err != nil {
			return err
		}
	}
	if hasNames(m.Names) {
		if err := writeSection(&buf, sectionCustom, writeNameCustomSection(m)); err != nil {
			return err
		}
	}
	for _, c := range m.Customs {
		var payload bytes.Buffer
		writeName(&payload, c.Name)
		payload.Write(c.Data)
		if err := writeSection(&buf, sectionCustom, payload.Bytes()); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeSection(buf *bytes.Buffer, id byte, payload []byte) error {
	buf.WriteByte(id)
	writeUvarint(buf, uint64(len(payload)))
	buf.Write(payload)
	return nil
}

func writeValueTypeVec(buf *bytes.Buffer, vs []types.ValueType) {
	writeUvarint(buf, uint64(len(vs)))
	for _, v := range vs {
		buf.WriteByte(byte(v))
	}
}

func writeTypeSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Type.Functions)))
	for _, fn := range m.Type.Functions {
		buf.WriteByte(0x60)
		writeValueTypeVec(&buf, fn.Params)
		writeValueTypeVec(&buf, fn.Results)
	}
	return buf.Bytes()
}

func writeLimits(buf *bytes.Buffer, lim module.Limits) {
	if lim.Max != nil {
		buf.WriteByte(0x01)
		writeUvarint(buf, uint64(lim.Min))
		writeUvarint(buf, uint64(*lim.Max))
	} else {
		buf.WriteByte(0x00)
		writeUvarint(buf, uint64(lim.Min))
	}
}

func writeImportSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Import.Imports)))
	for _, imp := range m.Import.Imports {
		writeName(&buf, imp.Module)
		writeName(&buf, imp.Name)
		switch d := imp.Descriptor.(type) {
		case module.FunctionImport:
			buf.WriteByte(externalKindFunc)
			writeUvarint(&buf, uint64(d.Type))
		case module.TableImport:
			buf.WriteByte(externalKindTable)
			buf.WriteByte(d.Type.ElemType)
			writeLimits(&buf, d.Type.Limits)
		case module.MemoryImport:
			buf.WriteByte(externalKindMemory)
			writeLimits(&buf, d.Type.Limits)
		case module.GlobalImport:
			buf.WriteByte(externalKindGlobal)
			buf.WriteByte(byte(d.Type))
			if d.Mutable {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	}
	return buf.Bytes()
}

func writeFunctionSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Function.TypeIndices)))
	for _, idx := range m.Function.TypeIndices {
		writeUvarint(&buf, uint64(idx))
	}
	return buf.Bytes()
}

func writeTableSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Table.Tables)))
	for _, t := range m.Table.Tables {
		buf.WriteByte(t.ElemType)
		writeLimits(&buf, t.Limits)
	}
	return buf.Bytes()
}

func writeMemorySection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Memory.Memories)))
	for _, mem := range m.Memory.Memories {
		writeLimits(&buf, mem.Limits)
	}
	return buf.Bytes()
}

func writeGlobalSection(m *module.Module) ([]byte, error) {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Global.Globals)))
	for _, g := range m.Global.Globals {
		buf.WriteByte(byte(g.Type))
		if g.Mutable {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		if err := writeExpr(&buf, g.Init); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeExportSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Export.Exports)))
	for _, exp := range m.Export.Exports {
		writeName(&buf, exp.Name)
		buf.WriteByte(exportKindByte(exp.Descriptor.Type))
		writeUvarint(&buf, uint64(exp.Descriptor.Index))
	}
	return buf.Bytes()
}

func exportKindByte(t module.ExportDescriptorType) byte {
	switch t {
	case module.TableExportType:
		return externalKindTable
	case module.MemoryExportType:
		return externalKindMemory
	case module.GlobalExportType:
		return externalKindGlobal
	default:
		return externalKindFunc
	}
}

func writeStartSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(*m.Start.FuncIndex))
	return buf.Bytes()
}

func writeElementSection(m *module.Module) ([]byte, error) {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Element.Segments)))
	for _, seg := range m.Element.Segments {
		writeUvarint(&buf, uint64(seg.TableIndex))
		if err := writeExpr(&buf, seg.Offset); err != nil {
			return nil, err
		}
		writeUvarint(&buf, uint64(len(seg.Indices)))
		for _, idx := range seg.Indices {
			writeUvarint(&buf, uint64(idx))
		}
	}
	return buf.Bytes(), nil
}

func writeCodeSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Code.Segments)))
	for _, seg := range m.Code.Segments {
		writeUvarint(&buf, uint64(len(seg.Code)))
		buf.Write(seg.Code)
	}
	return buf.Bytes()
}

func writeDataSection(m *module.Module) ([]byte, error) {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(m.Data.Segments)))
	for _, seg := range m.Data.Segments {
		writeUvarint(&buf, uint64(seg.Index))
		if err := writeExpr(&buf, seg.Offset); err != nil {
			return nil, err
		}
		writeUvarint(&buf, uint64(len(seg.Init)))
		buf.Write(seg.Init)
	}
	return buf.Bytes(), nil
}

func hasNames(n module.NameSection) bool {
	return n.Module != "" || len(n.Functions) > 0 || len(n.Locals) > 0
}

func writeNameCustomSection(m *module.Module) []byte {
	var buf bytes.Buffer
	writeName(&buf, "name")
	if m.Names.Module != "" {
		var sub bytes.Buffer
		writeName(&sub, m.Names.Module)
		buf.WriteByte(0)
		writeUvarint(&buf, uint64(sub.Len()))
		buf.Write(sub.Bytes())
	}
	if len(m.Names.Functions) > 0 {
		var sub bytes.Buffer
		writeNameMapVec(&sub, m.Names.Functions)
		buf.WriteByte(1)
		writeUvarint(&buf, uint64(sub.Len()))
		buf.Write(sub.Bytes())
	}
	if len(m.Names.Locals) > 0 {
		byFunc := map[uint32][]module.NameMap{}
		var order []uint32
		for _, l := range m.Names.Locals {
			if _, ok := byFunc[l.FuncIndex]; !ok {
				order = append(order, l.FuncIndex)
			}
			byFunc[l.FuncIndex] = append(byFunc[l.FuncIndex], l.NameMap)
		}
		var sub bytes.Buffer
		writeUvarint(&sub, uint64(len(order)))
		for _, fn := range order {
			writeUvarint(&sub, uint64(fn))
			writeNameMapVec(&sub, byFunc[fn])
		}
		buf.WriteByte(2)
		writeUvarint(&buf, uint64(sub.Len()))
		buf.Write(sub.Bytes())
	}
	return buf.Bytes()
}

func writeNameMapVec(buf *bytes.Buffer, nm []module.NameMap) {
	writeUvarint(buf, uint64(len(nm)))
	for _, e := range nm {
		writeUvarint(buf, uint64(e.Index))
		writeName(buf, e.Name)
	}
}

// CodeEntries decodes every raw code segment in m into its typed Func form.
func CodeEntries(m *module.Module) ([]*module.CodeEntry, error) {
	entries := make([]*module.CodeEntry, len(m.Code.Segments))
	for i, seg := range m.Code.Segments {
		entry, err := decodeCodeEntry(seg.Code)
		if err != nil {
			return nil, fmt.Errorf("encoding: code segment %d: %w", i, err)
		}
		entries[i] = entry
	}
	return entries, nil
}

func decodeCodeEntry(body []byte) (*module.CodeEntry, error) {
	r := bytes.NewReader(body)
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	locals := make([]module.LocalDecl, n)
	for i := range locals {
		count, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		vt, err := readValueType(r)
		if err != nil {
			return nil, err
		}
		locals[i] = module.LocalDecl{Count: uint32(count), Type: vt}
	}
	expr, err := readExpr(r)
	if err != nil {
		return nil, err
	}
	return &module.CodeEntry{Func: module.Func{Locals: locals, Expr: expr}}, nil
}

// WriteCodeEntry encodes a decoded function body back into its raw,
// not-yet-size-prefixed wire form (locals, then the instruction stream).
func WriteCodeEntry(w io.Writer, entry *module.CodeEntry) error {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(entry.Func.Locals)))
	for _, l := range entry.Func.Locals {
		writeUvarint(&buf, uint64(l.Count))
		buf.WriteByte(byte(l.Type))
	}
	if err := writeExpr(&buf, entry.Func.Expr); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
