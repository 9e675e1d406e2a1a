package elf

import (
	"bytes"
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// Symbol names a BOOTBOOT kernel may export. All of them are optional;
// a static kernel simply links against the fixed protocol addresses.
const (
	SymbolBootboot    = "bootboot"
	SymbolEnvironment = "environment"
	SymbolFramebuffer = "fb"
	SymbolInitStack   = "initstack"
)

// KernelSymbols holds the protocol symbols resolved from the kernel image.
// A nil entry means the kernel does not export that symbol.
type KernelSymbols struct {
	Bootboot    *types.ElfSymbol64
	Environment *types.ElfSymbol64
	Framebuffer *types.ElfSymbol64
	InitStack   *types.ElfSymbol64
}

// LoadedKernel is the result of loading the kernel image: an owned memory
// image of the load segment, the segment description, the entry point and
// the resolved protocol symbols.
type LoadedKernel struct {
	// The in-memory image: MemSize bytes, the first FileSize copied from
	// the file and the remainder zero-filled BSS.
	Image []byte
	// The load segment's program header.
	Segment types.ElfProgramHeader64
	// The virtual address of the kernel entry point.
	Entry uint64
	// The resolved protocol symbols.
	Symbols KernelSymbols
}

// Load parses, validates and loads a kernel ELF64 file.
func Load(file []byte) (*LoadedKernel, error) {
	image, err := Parse(file)
	if err != nil {
		return nil, err
	}
	return image.Load()
}

// Load extracts the load segment into an owned buffer and resolves the
// protocol symbols. A kernel without a PT_LOAD segment cannot run, so its
// absence is an error; missing optional symbols are not.
func (im *Image) Load() (*LoadedKernel, error) {
	segment, err := im.LoadSegment()
	if err != nil {
		return nil, err
	}

	fileLen := uint64(len(im.file))
	if segment.Offset+segment.FileSize < segment.Offset ||
		segment.Offset+segment.FileSize > fileLen {
		return nil, fmt.Errorf("load segment at 0x%x+0x%x runs past end of file: %w",
			segment.Offset, segment.FileSize, types.ErrInvalidOffset)
	}
	if segment.FileSize > segment.MemSize {
		return nil, fmt.Errorf("load segment file size 0x%x exceeds memory size 0x%x: %w",
			segment.FileSize, segment.MemSize, types.ErrInvalidSize)
	}

	symbols, err := im.resolveSymbols()
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, segment.MemSize)
	copy(buffer, im.file[segment.Offset:segment.Offset+segment.FileSize])

	return &LoadedKernel{
		Image:   buffer,
		Segment: *segment,
		Entry:   im.Header.Entry,
		Symbols: *symbols,
	}, nil
}

// LoadSegment returns the first PT_LOAD program header.
func (im *Image) LoadSegment() (*types.ElfProgramHeader64, error) {
	for i := range im.ProgramHeaders {
		if im.ProgramHeaders[i].Type == types.ElfProgramTypeLoad {
			return &im.ProgramHeaders[i], nil
		}
	}
	return nil, fmt.Errorf("no PT_LOAD program header: %w", types.ErrNoLoadSegment)
}

// Symbols decodes the full symbol table together with its string table.
func (im *Image) Symbols() ([]types.ElfSymbol64, []byte, error) {
	shstrtab, err := im.sectionNameTable()
	if err != nil {
		return nil, nil, err
	}

	symtab := im.findSection(shstrtab, ".symtab", types.ElfSectionTypeSymtab)
	strtab := im.findSection(shstrtab, ".strtab", types.ElfSectionTypeStrtab)
	if symtab == nil || strtab == nil {
		return nil, nil, fmt.Errorf("missing .symtab or .strtab section: %w", types.ErrNoSymbolTable)
	}

	if symtab.EntrySize != types.ElfSymbolSize {
		return nil, nil, fmt.Errorf("symbol entry size %d: %w", symtab.EntrySize, types.ErrInvalidSize)
	}
	if symtab.Size == 0 || symtab.Size%types.ElfSymbolSize != 0 {
		return nil, nil, fmt.Errorf("symbol table size 0x%x: %w", symtab.Size, types.ErrInvalidSize)
	}

	symRaw, err := im.sectionData(symtab)
	if err != nil {
		return nil, nil, fmt.Errorf(".symtab: %w", err)
	}
	strRaw, err := im.sectionData(strtab)
	if err != nil {
		return nil, nil, fmt.Errorf(".strtab: %w", err)
	}

	symbols := make([]types.ElfSymbol64, symtab.Size/types.ElfSymbolSize)
	for i := range symbols {
		symbols[i] = decodeSymbol(symRaw[i*types.ElfSymbolSize:])
	}
	return symbols, strRaw, nil
}

// LookupSymbol finds a symbol by name with a linear scan through the
// symbol table. Returns nil when the symbol is not exported.
func (im *Image) LookupSymbol(name string) (*types.ElfSymbol64, error) {
	symbols, strtab, err := im.Symbols()
	if err != nil {
		return nil, err
	}
	return lookup(symbols, strtab, name), nil
}

func (im *Image) resolveSymbols() (*KernelSymbols, error) {
	symbols, strtab, err := im.Symbols()
	if err != nil {
		return nil, err
	}
	return &KernelSymbols{
		Bootboot:    lookup(symbols, strtab, SymbolBootboot),
		Environment: lookup(symbols, strtab, SymbolEnvironment),
		Framebuffer: lookup(symbols, strtab, SymbolFramebuffer),
		InitStack:   lookup(symbols, strtab, SymbolInitStack),
	}, nil
}

func lookup(symbols []types.ElfSymbol64, strtab []byte, name string) *types.ElfSymbol64 {
	for i := range symbols {
		if tableString(strtab, symbols[i].NameIndex) == name {
			return &symbols[i]
		}
	}
	return nil
}

// sectionNameTable returns the contents of the section holding section
// names, located through the header's section name index.
func (im *Image) sectionNameTable() ([]byte, error) {
	idx := int(im.Header.SectionNameIndex)
	if idx >= len(im.SectionHeaders) {
		return nil, fmt.Errorf("section name index %d out of %d sections: %w",
			idx, len(im.SectionHeaders), types.ErrInvalidOffset)
	}
	data, err := im.sectionData(&im.SectionHeaders[idx])
	if err != nil {
		return nil, fmt.Errorf("section name table: %w", err)
	}
	return data, nil
}

// findSection returns the section with the given name and type, or nil.
func (im *Image) findSection(shstrtab []byte, name string, sectionType uint32) *types.ElfSectionHeader64 {
	for i := range im.SectionHeaders {
		s := &im.SectionHeaders[i]
		if s.Type == sectionType && tableString(shstrtab, s.NameIndex) == name {
			return s
		}
	}
	return nil
}

// sectionData returns the bounds-checked contents of a section.
func (im *Image) sectionData(s *types.ElfSectionHeader64) ([]byte, error) {
	fileLen := uint64(len(im.file))
	if s.Offset+s.Size < s.Offset || s.Offset+s.Size > fileLen {
		return nil, fmt.Errorf("section at 0x%x+0x%x runs past end of file: %w",
			s.Offset, s.Size, types.ErrInvalidOffset)
	}
	return im.file[s.Offset : s.Offset+s.Size], nil
}

// tableString reads the NUL-terminated string at the given offset of a
// string table. An out-of-range offset yields an empty string.
func tableString(strtab []byte, offset uint32) string {
	if uint64(offset) >= uint64(len(strtab)) {
		return ""
	}
	end := bytes.IndexByte(strtab[offset:], 0)
	if end < 0 {
		return string(strtab[offset:])
	}
	return string(strtab[offset : uint64(offset)+uint64(end)])
}
