// Package elf parses and validates the kernel's ELF64 executable image:
// the file header, the program and section header tables, the symbol
// table, and finally the in-memory image of the load segment.
package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// ParseHeader validates the ELF64 file header at the start of file. Every
// constraint maps to its own error so a caller can report exactly what is
// wrong with a rejected kernel image.
func ParseHeader(file []byte) (*types.ElfHeader64, error) {
	if len(file) < types.ElfHeaderSize {
		return nil, fmt.Errorf("file of %d bytes cannot hold an ELF64 header: %w",
			len(file), types.ErrInvalidSize)
	}

	header := decodeHeader(file)

	magic := header.Magic()
	if !bytes.Equal(magic[:], types.ElfMagic[:]) {
		return nil, fmt.Errorf("magic % x: %w", magic, types.ErrInvalidMagic)
	}
	if header.Class() != types.ElfClass64 {
		return nil, fmt.Errorf("class %d: %w", header.Class(), types.ErrNot64Bit)
	}
	if header.Data() != types.ElfDataLittleEndian {
		return nil, fmt.Errorf("data encoding %d: %w", header.Data(), types.ErrNotLittleEndian)
	}
	if header.IdentVersion() != types.ElfIdentVersionCurrent || header.Version != types.ElfVersionCurrent {
		return nil, fmt.Errorf("ident version %d, file version %d: %w",
			header.IdentVersion(), header.Version, types.ErrInvalidVersion)
	}
	if header.OsAbi() != types.ElfAbiSystemV {
		return nil, fmt.Errorf("OS/ABI %d: %w", header.OsAbi(), types.ErrInvalidAbi)
	}
	if header.FileType != types.ElfTypeExecutable {
		return nil, fmt.Errorf("file type %d: %w", header.FileType, types.ErrInvalidFileType)
	}
	if header.Machine != types.ElfMachineX86_64 {
		return nil, fmt.Errorf("machine 0x%x: %w", header.Machine, types.ErrInvalidIsa)
	}
	if header.HeaderSize != types.ElfHeaderSize {
		return nil, fmt.Errorf("declared header size %d: %w", header.HeaderSize, types.ErrInvalidSize)
	}

	return &header, nil
}

func decodeHeader(data []byte) types.ElfHeader64 {
	var h types.ElfHeader64
	copy(h.Ident[:], data[0:16])
	h.FileType = binary.LittleEndian.Uint16(data[16:18])
	h.Machine = binary.LittleEndian.Uint16(data[18:20])
	h.Version = binary.LittleEndian.Uint32(data[20:24])
	h.Entry = binary.LittleEndian.Uint64(data[24:32])
	h.ProgramHeaderOffset = binary.LittleEndian.Uint64(data[32:40])
	h.SectionHeaderOffset = binary.LittleEndian.Uint64(data[40:48])
	h.Flags = binary.LittleEndian.Uint32(data[48:52])
	h.HeaderSize = binary.LittleEndian.Uint16(data[52:54])
	h.ProgramHeaderEntrySize = binary.LittleEndian.Uint16(data[54:56])
	h.ProgramHeaderCount = binary.LittleEndian.Uint16(data[56:58])
	h.SectionHeaderEntrySize = binary.LittleEndian.Uint16(data[58:60])
	h.SectionHeaderCount = binary.LittleEndian.Uint16(data[60:62])
	h.SectionNameIndex = binary.LittleEndian.Uint16(data[62:64])
	return h
}

func decodeProgramHeader(data []byte) types.ElfProgramHeader64 {
	var p types.ElfProgramHeader64
	p.Type = binary.LittleEndian.Uint32(data[0:4])
	p.Flags = binary.LittleEndian.Uint32(data[4:8])
	p.Offset = binary.LittleEndian.Uint64(data[8:16])
	p.VirtualAddress = binary.LittleEndian.Uint64(data[16:24])
	p.PhysicalAddress = binary.LittleEndian.Uint64(data[24:32])
	p.FileSize = binary.LittleEndian.Uint64(data[32:40])
	p.MemSize = binary.LittleEndian.Uint64(data[40:48])
	p.Align = binary.LittleEndian.Uint64(data[48:56])
	return p
}

func decodeSectionHeader(data []byte) types.ElfSectionHeader64 {
	var s types.ElfSectionHeader64
	s.NameIndex = binary.LittleEndian.Uint32(data[0:4])
	s.Type = binary.LittleEndian.Uint32(data[4:8])
	s.Flags = binary.LittleEndian.Uint64(data[8:16])
	s.Address = binary.LittleEndian.Uint64(data[16:24])
	s.Offset = binary.LittleEndian.Uint64(data[24:32])
	s.Size = binary.LittleEndian.Uint64(data[32:40])
	s.Link = binary.LittleEndian.Uint32(data[40:44])
	s.Info = binary.LittleEndian.Uint32(data[44:48])
	s.AddressAlign = binary.LittleEndian.Uint64(data[48:56])
	s.EntrySize = binary.LittleEndian.Uint64(data[56:64])
	return s
}

func decodeSymbol(data []byte) types.ElfSymbol64 {
	var s types.ElfSymbol64
	s.NameIndex = binary.LittleEndian.Uint32(data[0:4])
	s.Info = data[4]
	s.Other = data[5]
	s.SectionIndex = binary.LittleEndian.Uint16(data[6:8])
	s.Value = binary.LittleEndian.Uint64(data[8:16])
	s.Size = binary.LittleEndian.Uint64(data[16:24])
	return s
}
