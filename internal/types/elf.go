package types

// ELF64 on-disk structures (System V ABI, chapter 4)
// The kernel image is a statically linked ELF64 executable. These are the
// exact file layouts; the readers decode them field by field.

// ElfMagic is the 4-byte magic at the start of every ELF file.
var ElfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// e_ident index and expected values for a loadable kernel image.
const (
	// ElfClass64 identifies a 64-bit object (e_ident[4]).
	ElfClass64 = 2
	// ElfDataLittleEndian identifies little-endian encoding (e_ident[5]).
	ElfDataLittleEndian = 1
	// ElfIdentVersionCurrent is the only defined identification version
	// (e_ident[6]).
	ElfIdentVersionCurrent = 1
	// ElfAbiSystemV is the System V OS/ABI (e_ident[7]).
	ElfAbiSystemV = 0
	// ElfTypeExecutable marks an executable object file (e_type).
	ElfTypeExecutable = 2
	// ElfMachineX86_64 is the AMD x86-64 architecture (e_machine).
	ElfMachineX86_64 = 0x3e
	// ElfVersionCurrent is the only defined object file version (e_version).
	ElfVersionCurrent = 1
)

// Fixed structure sizes. The entry-size fields in the ELF header must match
// these exactly for the image to be loadable.
const (
	ElfHeaderSize        = 64
	ElfProgramHeaderSize = 56
	ElfSectionHeaderSize = 64
	ElfSymbolSize        = 24
)

// Program header types (p_type).
const (
	// ElfProgramTypeLoad marks a loadable segment.
	ElfProgramTypeLoad = 1
)

// Section header types (sh_type).
const (
	// ElfSectionTypeSymtab marks a symbol table section.
	ElfSectionTypeSymtab = 2
	// ElfSectionTypeStrtab marks a string table section.
	ElfSectionTypeStrtab = 3
)

// ElfHeader64 represents the ELF64 file header.
type ElfHeader64 struct {
	// The identification bytes: magic, class, data encoding, version,
	// OS/ABI, ABI version, padding.
	Ident [16]byte
	// The object file type. Must be ElfTypeExecutable.
	FileType uint16
	// The target instruction set. Must be ElfMachineX86_64.
	Machine uint16
	// The object file version. Must be ElfVersionCurrent.
	Version uint32
	// The virtual address of the entry point.
	Entry uint64
	// The file offset of the program header table.
	ProgramHeaderOffset uint64
	// The file offset of the section header table.
	SectionHeaderOffset uint64
	// Processor-specific flags. Unused on x86-64.
	Flags uint32
	// The size of this header. Must equal ElfHeaderSize.
	HeaderSize uint16
	// The size of a program header table entry.
	ProgramHeaderEntrySize uint16
	// The number of program header table entries.
	ProgramHeaderCount uint16
	// The size of a section header table entry.
	SectionHeaderEntrySize uint16
	// The number of section header table entries.
	SectionHeaderCount uint16
	// The section header table index of the section name string table.
	SectionNameIndex uint16
}

// Class returns the file class byte (32/64-bit).
func (h *ElfHeader64) Class() uint8 { return h.Ident[4] }

// Data returns the data encoding byte (little/big endian).
func (h *ElfHeader64) Data() uint8 { return h.Ident[5] }

// IdentVersion returns the identification version byte.
func (h *ElfHeader64) IdentVersion() uint8 { return h.Ident[6] }

// OsAbi returns the OS/ABI byte.
func (h *ElfHeader64) OsAbi() uint8 { return h.Ident[7] }

// Magic returns the first four identification bytes.
func (h *ElfHeader64) Magic() [4]byte {
	return [4]byte{h.Ident[0], h.Ident[1], h.Ident[2], h.Ident[3]}
}

// ElfProgramHeader64 represents one entry of the program header table.
type ElfProgramHeader64 struct {
	// The segment type.
	Type uint32
	// Segment permission flags.
	Flags uint32
	// The file offset of the segment contents.
	Offset uint64
	// The virtual address of the segment in memory.
	VirtualAddress uint64
	// The physical address, where relevant.
	PhysicalAddress uint64
	// The number of bytes of the segment present in the file.
	FileSize uint64
	// The number of bytes the segment occupies in memory. At least
	// FileSize; the excess is zero-filled BSS.
	MemSize uint64
	// The required alignment of the segment.
	Align uint64
}

// ElfSectionHeader64 represents one entry of the section header table.
type ElfSectionHeader64 struct {
	// The offset of the section name in the section name string table.
	NameIndex uint32
	// The section type.
	Type uint32
	// Section attribute flags.
	Flags uint64
	// The virtual address of the section in memory, or zero.
	Address uint64
	// The file offset of the section contents.
	Offset uint64
	// The size of the section in bytes.
	Size uint64
	// A section type dependent link to another section.
	Link uint32
	// Section type dependent extra information.
	Info uint32
	// The required alignment of the section.
	AddressAlign uint64
	// The size of each entry, for sections holding fixed-size entries.
	EntrySize uint64
}

// ElfSymbol64 represents one entry of an ELF64 symbol table.
type ElfSymbol64 struct {
	// The offset of the symbol name in the linked string table.
	NameIndex uint32
	// The symbol binding and type.
	Info uint8
	// The symbol visibility.
	Other uint8
	// The index of the section the symbol is defined relative to.
	SectionIndex uint16
	// The symbol value, usually a virtual address.
	Value uint64
	// The size associated with the symbol, or zero.
	Size uint64
}
