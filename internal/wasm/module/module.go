// Package module is the in-memory representation of a stack-machine
// bytecode module: an ordered collection of typed sections. It is pure
// data — structural access and mutation only, no decoding or validation
// beyond what its own invariants require (see Module's doc comment).
//
// An absent section is represented by a nil slice (or nil pointer, for
// Start); a section that is present but empty is a non-nil, zero-length
// slice. Callers that need to distinguish "no such section" from "section
// with no entries" — as the packer does for Export and Function — rely on
// this convention. encoding.ReadModule does not make this distinction: a
// section present in the binary with zero entries decodes to a nil slice,
// the same as an absent one, and encoding.WriteModule omits sections with
// no entries.
package module

import (
	"github.com/open-policy-agent/wasm-packer/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/types"
)

// Module is an ordered collection of sections. Sections are exposed as
// named fields rather than a generic list because each variant has a
// distinct shape; traversal order for encoding purposes is fixed by the
// wire format (Type, Import, Function, Table, Memory, Global, Export,
// Start, Element, Code, Data), independent of field declaration order here.
type Module struct {
	Version uint32

	Type     TypeSection
	Import   ImportSection
	Function FunctionSection
	Table    TableSection
	Memory   MemorySection
	Global   GlobalSection
	Export   ExportSection
	Start    StartSection
	Element  ElementSection
	Code     CodeSection
	Data     DataSection

	Names   NameSection
	Customs []CustomSection
}

// FunctionImportCount returns the number of imports of function kind.
// Imported functions occupy the low end of the module's combined function
// index space, so this is also the offset that must be added to a
// Function-section-relative index to get a combined index.
func (m *Module) FunctionImportCount() int {
	var n int
	for _, imp := range m.Import.Imports {
		if imp.Descriptor.Kind() == FunctionImportType {
			n++
		}
	}
	return n
}

// TypeSection holds the module's indexed list of function signatures.
type TypeSection struct {
	Functions []FunctionType
}

// FunctionType is a function signature: an ordered list of parameter types
// and an ordered list of result types. The stack machine this tool targets
// only ever produces single-result or no-result signatures, but multiple
// results are represented for modules decoded from elsewhere.
type FunctionType struct {
	Params  []types.ValueType
	Results []types.ValueType
}

// Equal reports whether two signatures have identical params and results.
func (t FunctionType) Equal(other FunctionType) bool {
	if len(t.Params) != len(other.Params) || len(t.Results) != len(other.Results) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range t.Results {
		if t.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// ImportSection holds the module's indexed list of imports.
type ImportSection struct {
	Imports []Import
}

// Import is a single imported function, table, memory, or global.
type Import struct {
	Module     string
	Name       string
	Descriptor ImportDescriptor
}

// ImportDescriptorType distinguishes the four kinds of importable entity.
type ImportDescriptorType byte

const (
	FunctionImportType ImportDescriptorType = iota
	TableImportType
	MemoryImportType
	GlobalImportType
)

// ImportDescriptor is implemented by FunctionImport, TableImport,
// MemoryImport, and GlobalImport.
type ImportDescriptor interface {
	Kind() ImportDescriptorType
}

// FunctionImport references a type-section signature index.
type FunctionImport struct {
	Type uint32
}

func (FunctionImport) Kind() ImportDescriptorType { return FunctionImportType }

// TableImport describes an imported table.
type TableImport struct {
	Type TableType
}

func (TableImport) Kind() ImportDescriptorType { return TableImportType }

// MemoryImport describes an imported linear memory.
type MemoryImport struct {
	Type MemoryType
}

func (MemoryImport) Kind() ImportDescriptorType { return MemoryImportType }

// GlobalImport describes an imported global variable.
type GlobalImport struct {
	Type    types.ValueType
	Mutable bool
}

func (GlobalImport) Kind() ImportDescriptorType { return GlobalImportType }

// FunctionSection holds, for each locally defined function, the index of
// its signature in the Type section. Position i here and position i in
// CodeSection describe the same function.
type FunctionSection struct {
	TypeIndices []uint32
}

// TableSection holds the module's locally defined tables.
type TableSection struct {
	Tables []TableType
}

// TableType describes a table's element type and size limits. ElemType is
// fixed at funcref (0x70) by the current format; it is carried for
// completeness and round-tripping.
type TableType struct {
	ElemType byte
	Limits   Limits
}

// MemorySection holds the module's locally defined linear memories.
type MemorySection struct {
	Memories []MemoryType
}

// MemoryType describes a linear memory's size limits, in 64KiB pages.
type MemoryType struct {
	Limits Limits
}

// Limits is a resizable range: Min is required, Max is optional.
type Limits struct {
	Min uint32
	Max *uint32
}

// GlobalSection holds the module's locally defined global variables.
type GlobalSection struct {
	Globals []Global
}

// Global is a single global variable, with its type, mutability, and a
// constant initializer expression.
type Global struct {
	Type    types.ValueType
	Mutable bool
	Init    Expr
}

// ExportSection holds the module's named, externally visible entries.
type ExportSection struct {
	Exports []Export
}

// Export is a single named entry exposed to the host or other modules.
type Export struct {
	Name       string
	Descriptor ExportDescriptor
}

// ExportDescriptorType distinguishes the four kinds of exportable entity.
type ExportDescriptorType byte

const (
	FunctionExportType ExportDescriptorType = iota
	TableExportType
	MemoryExportType
	GlobalExportType
)

// ExportDescriptor names the internal kind and combined index an export
// points at.
type ExportDescriptor struct {
	Type  ExportDescriptorType
	Index uint32
}

// StartSection optionally names a function, in combined index space, to
// invoke automatically at instantiation. Nil means the module has no start
// function.
type StartSection struct {
	FuncIndex *uint32
}

// ElementSection holds the module's table initializer segments.
type ElementSection struct {
	Segments []ElementSegment
}

// ElementSegment initializes a range of a table with a list of function
// indices, starting at the address Offset evaluates to.
type ElementSegment struct {
	TableIndex uint32
	Offset     Expr
	Indices    []uint32
}

// CodeSection holds, for each locally defined function, its body. Position
// i here and position i in FunctionSection describe the same function.
type CodeSection struct {
	Segments []CodeSegment
}

// CodeSegment holds a function body exactly as encoded on the wire, local
// declarations and instructions alike, with no decoding performed. The
// packer round-trips bodies it never inspects — the constructor and every
// other pre-existing function — through this raw form untouched, and only
// ever produces one function's body itself (the trampoline), which it
// builds via a CodeEntry and pre-encodes into this same raw form (see
// internal/wasm/encoding.WriteCodeEntry).
type CodeSegment struct {
	Code []byte
}

// CodeEntry holds a function body decoded into typed locals and
// instructions. encoding.CodeEntries decodes a module's raw CodeSegments
// into these; encoding.WriteCodeEntry re-encodes one back into raw bytes.
type CodeEntry struct {
	Func Func
}

// Func is a function's local variable declarations and instruction stream.
type Func struct {
	Locals []LocalDecl
	Expr   Expr
}

// LocalDecl declares Count consecutive locals of the same Type, the wire
// format's run-length encoding of the local variable list.
type LocalDecl struct {
	Count uint32
	Type  types.ValueType
}

// Expr is a constant or instruction expression, always terminated by an
// End instruction in its Instrs slice in the decoded form.
type Expr struct {
	Instrs []instruction.Instruction
}

// DataSection holds the module's data segments, which initialize ranges of
// a linear memory at instantiation time.
type DataSection struct {
	Segments []DataSegment
}

// DataSegment is `(memory_index, offset_expression, bytes)`: Init is
// written into memory Index starting at the address Offset evaluates to.
type DataSegment struct {
	Index  uint32
	Offset Expr
	Init   []byte
}

// NameSection carries the optional debug-name custom section: human
// readable names for the module, its functions, and their locals. Not
// interpreted by the packer, but preserved across packing so downstream
// tooling (disassemblers, stack traces) keeps working.
type NameSection struct {
	Module    string
	Functions []NameMap
	Locals    []LocalNameMap
}

// NameMap associates a combined index with a name.
type NameMap struct {
	Index uint32
	Name  string
}

// LocalNameMap associates a function's locals with names.
type LocalNameMap struct {
	FuncIndex uint32
	NameMap   NameMap
}

// CustomSection is an arbitrary, unparsed named payload. Sections other
// than "name" are preserved verbatim.
type CustomSection struct {
	Name string
	Data []byte
}
