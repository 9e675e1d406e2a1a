package elf

import (
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// Image is a validated view of a kernel ELF64 file: the header plus the
// decoded program and section header tables. The file buffer stays owned by
// the caller and is only read.
type Image struct {
	Header         types.ElfHeader64
	ProgramHeaders []types.ElfProgramHeader64
	SectionHeaders []types.ElfSectionHeader64
	file           []byte
}

// Parse validates the ELF header and extracts both header tables.
func Parse(file []byte) (*Image, error) {
	header, err := ParseHeader(file)
	if err != nil {
		return nil, err
	}

	progs, sects, err := parseHeaderTables(file, header)
	if err != nil {
		return nil, err
	}

	return &Image{
		Header:         *header,
		ProgramHeaders: progs,
		SectionHeaders: sects,
		file:           file,
	}, nil
}

// parseHeaderTables bounds-checks and decodes the program and section
// header tables declared by the file header.
func parseHeaderTables(file []byte, h *types.ElfHeader64) ([]types.ElfProgramHeader64, []types.ElfSectionHeader64, error) {
	fileLen := uint64(len(file))

	total := uint64(h.HeaderSize) +
		uint64(h.ProgramHeaderCount)*uint64(h.ProgramHeaderEntrySize) +
		uint64(h.SectionHeaderCount)*uint64(h.SectionHeaderEntrySize)
	if total > fileLen {
		return nil, nil, fmt.Errorf("headers need %d bytes but file has %d: %w",
			total, fileLen, types.ErrTooManyHeaders)
	}

	if h.ProgramHeaderEntrySize != types.ElfProgramHeaderSize {
		return nil, nil, fmt.Errorf("program header entry size %d: %w",
			h.ProgramHeaderEntrySize, types.ErrInvalidSize)
	}
	if h.SectionHeaderEntrySize != types.ElfSectionHeaderSize {
		return nil, nil, fmt.Errorf("section header entry size %d: %w",
			h.SectionHeaderEntrySize, types.ErrInvalidSize)
	}

	if h.ProgramHeaderOffset >= fileLen {
		return nil, nil, fmt.Errorf("program header table offset 0x%x: %w",
			h.ProgramHeaderOffset, types.ErrInvalidOffset)
	}
	if h.SectionHeaderOffset >= fileLen {
		return nil, nil, fmt.Errorf("section header table offset 0x%x: %w",
			h.SectionHeaderOffset, types.ErrInvalidOffset)
	}
	if h.ProgramHeaderOffset+uint64(h.ProgramHeaderCount)*types.ElfProgramHeaderSize > fileLen {
		return nil, nil, fmt.Errorf("program header table runs past end of file: %w",
			types.ErrInvalidOffset)
	}
	if h.SectionHeaderOffset+uint64(h.SectionHeaderCount)*types.ElfSectionHeaderSize > fileLen {
		return nil, nil, fmt.Errorf("section header table runs past end of file: %w",
			types.ErrInvalidOffset)
	}

	progs := make([]types.ElfProgramHeader64, h.ProgramHeaderCount)
	for i := range progs {
		off := h.ProgramHeaderOffset + uint64(i)*types.ElfProgramHeaderSize
		progs[i] = decodeProgramHeader(file[off : off+types.ElfProgramHeaderSize])
	}

	sects := make([]types.ElfSectionHeader64, h.SectionHeaderCount)
	for i := range sects {
		off := h.SectionHeaderOffset + uint64(i)*types.ElfSectionHeaderSize
		sects[i] = decodeSectionHeader(file[off : off+types.ElfSectionHeaderSize])
	}

	return progs, sects, nil
}
