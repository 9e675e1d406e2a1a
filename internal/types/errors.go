package types

import "errors"

// Parse errors shared by the table and image parsers. Each parser wraps
// these with context via fmt.Errorf and %w; callers branch with errors.Is.

// Table discovery and validation errors (ACPI, SMBIOS, ELF header tables).
var (
	// ErrNoTable means the firmware configuration table has no entry for
	// the requested capability.
	ErrNoTable = errors.New("table not present in configuration table")
	// ErrInvalidPointer means a table or structure address was null or
	// outside the readable firmware memory.
	ErrInvalidPointer = errors.New("invalid table pointer")
	// ErrInvalidSignature means a signature or anchor string mismatched.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrFailedChecksum means a byte-sum checksum did not come out to zero.
	ErrFailedChecksum = errors.New("checksum failed")
	// ErrInvalidSize means a declared length or entry size was impossible.
	ErrInvalidSize = errors.New("invalid size")
	// ErrInvalidOffset means a declared file offset was past the end of
	// the buffer.
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrTooManyHeaders means the declared header tables cannot fit in
	// the file.
	ErrTooManyHeaders = errors.New("header tables exceed file size")
)

// ELF header validation errors, one per validated field.
var (
	// ErrInvalidMagic means the file does not start with 7F 45 4C 46.
	ErrInvalidMagic = errors.New("invalid ELF magic")
	// ErrNot64Bit means the file class is not ELFCLASS64.
	ErrNot64Bit = errors.New("ELF file is not 64-bit")
	// ErrNotLittleEndian means the data encoding is not ELFDATA2LSB.
	ErrNotLittleEndian = errors.New("ELF file is not little-endian")
	// ErrInvalidVersion means the identification or file version is not 1.
	ErrInvalidVersion = errors.New("invalid ELF version")
	// ErrInvalidAbi means the OS/ABI is not System V.
	ErrInvalidAbi = errors.New("invalid ELF ABI")
	// ErrInvalidFileType means the file is not an executable object.
	ErrInvalidFileType = errors.New("ELF file is not executable")
	// ErrInvalidIsa means the target machine is not x86-64.
	ErrInvalidIsa = errors.New("ELF ISA is not x86-64")
	// ErrNoLoadSegment means the program header table has no PT_LOAD
	// entry, so there is nothing to run.
	ErrNoLoadSegment = errors.New("no loadable segment")
	// ErrNoSymbolTable means the image lacks a usable .symtab/.strtab
	// pair.
	ErrNoSymbolTable = errors.New("no symbol table")
)

// Memory map and environment errors.
var (
	// ErrEntryTooLarge means a region's byte count cannot be represented
	// in the packed memory map encoding.
	ErrEntryTooLarge = errors.New("memory map entry too large to pack")
	// ErrEnvironmentTooLarge means the environment text exceeds the page
	// that carries it.
	ErrEnvironmentTooLarge = errors.New("environment larger than 4095 bytes")
	// ErrFileNotFound means the requested file is not in the initrd.
	ErrFileNotFound = errors.New("file not found in initrd")
)
