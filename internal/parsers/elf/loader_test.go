package elf

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

const testEntry = 0xffffffffffe00000

// kernelFixture is a synthetic loadable kernel image with known layout
// offsets, so tests can corrupt individual structures in place.
type kernelFixture struct {
	file    []byte
	phOff   int
	shOff   int
	codeOff int
	code    []byte
	bssLen  int
}

// createTestKernel assembles a complete ELF64 executable: one PT_LOAD
// segment, a .symtab exporting "bootboot" and "environment", the matching
// .strtab, and the section name table.
func createTestKernel() *kernelFixture {
	code := []byte{0x48, 0x31, 0xc0, 0x90, 0xc3}
	bssLen := 11
	shstrtab := []byte("\x00.symtab\x00.strtab\x00.shstrtab\x00")
	strtab := []byte("\x00bootboot\x00environment\x00")

	phOff := types.ElfHeaderSize
	shOff := phOff + types.ElfProgramHeaderSize
	shstrOff := shOff + 4*types.ElfSectionHeaderSize
	symOff := shstrOff + len(shstrtab)
	strOff := symOff + 3*types.ElfSymbolSize
	codeOff := strOff + len(strtab)

	f := make([]byte, codeOff+len(code))

	// File header.
	copy(f, createValidHeader())
	binary.LittleEndian.PutUint64(f[32:40], uint64(phOff))
	binary.LittleEndian.PutUint64(f[40:48], uint64(shOff))
	binary.LittleEndian.PutUint16(f[56:58], 1)
	binary.LittleEndian.PutUint16(f[60:62], 4)
	binary.LittleEndian.PutUint16(f[62:64], 3)

	// PT_LOAD program header.
	ph := f[phOff:]
	binary.LittleEndian.PutUint32(ph[0:4], types.ElfProgramTypeLoad)
	binary.LittleEndian.PutUint64(ph[8:16], uint64(codeOff))
	binary.LittleEndian.PutUint64(ph[16:24], testEntry)
	binary.LittleEndian.PutUint64(ph[32:40], uint64(len(code)))
	binary.LittleEndian.PutUint64(ph[40:48], uint64(len(code)+bssLen))

	writeSection := func(index int, nameIdx uint32, sectionType uint32, offset, size, entrySize uint64) {
		sh := f[shOff+index*types.ElfSectionHeaderSize:]
		binary.LittleEndian.PutUint32(sh[0:4], nameIdx)
		binary.LittleEndian.PutUint32(sh[4:8], sectionType)
		binary.LittleEndian.PutUint64(sh[24:32], offset)
		binary.LittleEndian.PutUint64(sh[32:40], size)
		binary.LittleEndian.PutUint64(sh[56:64], entrySize)
	}
	// Section 0 stays the null section.
	writeSection(1, 1, types.ElfSectionTypeSymtab, uint64(symOff), 3*types.ElfSymbolSize, types.ElfSymbolSize)
	writeSection(2, 9, types.ElfSectionTypeStrtab, uint64(strOff), uint64(len(strtab)), 0)
	writeSection(3, 17, types.ElfSectionTypeStrtab, uint64(shstrOff), uint64(len(shstrtab)), 0)

	copy(f[shstrOff:], shstrtab)
	copy(f[strOff:], strtab)
	copy(f[codeOff:], code)

	// Symbols: null, bootboot at the entry, environment a page below it.
	sym := f[symOff+types.ElfSymbolSize:]
	binary.LittleEndian.PutUint32(sym[0:4], 1)
	binary.LittleEndian.PutUint64(sym[8:16], testEntry)
	sym = f[symOff+2*types.ElfSymbolSize:]
	binary.LittleEndian.PutUint32(sym[0:4], 10)
	binary.LittleEndian.PutUint64(sym[8:16], testEntry-types.PageSize)

	return &kernelFixture{
		file:    f,
		phOff:   phOff,
		shOff:   shOff,
		codeOff: codeOff,
		code:    code,
		bssLen:  bssLen,
	}
}

func TestParseHeaderTables(t *testing.T) {
	t.Run("valid tables decode", func(t *testing.T) {
		fx := createTestKernel()
		image, err := Parse(fx.file)
		require.NoError(t, err)

		require.Len(t, image.ProgramHeaders, 1)
		require.Len(t, image.SectionHeaders, 4)
		assert.Equal(t, uint32(types.ElfProgramTypeLoad), image.ProgramHeaders[0].Type)
		assert.Equal(t, uint64(len(fx.code)), image.ProgramHeaders[0].FileSize)
	})

	t.Run("header counts beyond file size fail with ErrTooManyHeaders", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint16(fx.file[56:58], 0xffff)

		_, err := Parse(fx.file)
		assert.ErrorIs(t, err, types.ErrTooManyHeaders)
	})

	t.Run("wrong program header entry size fails with ErrInvalidSize", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint16(fx.file[54:56], types.ElfProgramHeaderSize-8)

		_, err := Parse(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidSize)
	})

	t.Run("wrong section header entry size fails with ErrInvalidSize", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint16(fx.file[58:60], types.ElfSectionHeaderSize+8)

		_, err := Parse(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidSize)
	})

	t.Run("program header offset past end fails with ErrInvalidOffset", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint64(fx.file[32:40], uint64(len(fx.file)))

		_, err := Parse(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidOffset)
	})

	t.Run("section header offset past end fails with ErrInvalidOffset", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint64(fx.file[40:48], uint64(len(fx.file)+1))

		_, err := Parse(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidOffset)
	})
}

func TestLoad(t *testing.T) {
	t.Run("valid kernel loads with zero-filled BSS", func(t *testing.T) {
		fx := createTestKernel()
		kernel, err := Load(fx.file)
		require.NoError(t, err)

		require.Len(t, kernel.Image, len(fx.code)+fx.bssLen)
		assert.Equal(t, fx.code, kernel.Image[:len(fx.code)])
		for i := len(fx.code); i < len(kernel.Image); i++ {
			assert.Zero(t, kernel.Image[i], "BSS byte %d", i)
		}
		assert.Equal(t, uint64(testEntry), kernel.Entry)
		assert.Equal(t, uint64(len(fx.code)), kernel.Segment.FileSize)
	})

	t.Run("loading copies the file, not a view of it", func(t *testing.T) {
		fx := createTestKernel()
		kernel, err := Load(fx.file)
		require.NoError(t, err)

		fx.file[fx.codeOff] ^= 0xff
		assert.Equal(t, fx.code[0]^0xff, fx.file[fx.codeOff])
		assert.Equal(t, fx.code[0], kernel.Image[0])
	})

	t.Run("exported protocol symbols resolve, absent ones are nil", func(t *testing.T) {
		fx := createTestKernel()
		kernel, err := Load(fx.file)
		require.NoError(t, err)

		require.NotNil(t, kernel.Symbols.Bootboot)
		assert.Equal(t, uint64(testEntry), kernel.Symbols.Bootboot.Value)
		require.NotNil(t, kernel.Symbols.Environment)
		assert.Equal(t, uint64(testEntry-types.PageSize), kernel.Symbols.Environment.Value)
		assert.Nil(t, kernel.Symbols.Framebuffer)
		assert.Nil(t, kernel.Symbols.InitStack)
	})

	t.Run("missing PT_LOAD fails with ErrNoLoadSegment", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint32(fx.file[fx.phOff:], 4) // PT_NOTE

		_, err := Load(fx.file)
		assert.ErrorIs(t, err, types.ErrNoLoadSegment)
	})

	t.Run("segment running past end of file fails with ErrInvalidOffset", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint64(fx.file[fx.phOff+32:], uint64(len(fx.file)))
		binary.LittleEndian.PutUint64(fx.file[fx.phOff+40:], uint64(len(fx.file)))

		_, err := Load(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidOffset)
	})

	t.Run("file size above memory size fails with ErrInvalidSize", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint64(fx.file[fx.phOff+40:], uint64(len(fx.code)-1))

		_, err := Load(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidSize)
	})

	t.Run("missing symbol table fails with ErrNoSymbolTable", func(t *testing.T) {
		fx := createTestKernel()
		// Retype .symtab so no SYMTAB section remains.
		binary.LittleEndian.PutUint32(fx.file[fx.shOff+types.ElfSectionHeaderSize+4:], types.ElfSectionTypeStrtab)

		_, err := Load(fx.file)
		assert.ErrorIs(t, err, types.ErrNoSymbolTable)
	})

	t.Run("wrong symbol entry size fails with ErrInvalidSize", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint64(fx.file[fx.shOff+types.ElfSectionHeaderSize+56:], 16)

		_, err := Load(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidSize)
	})

	t.Run("section name index out of range fails with ErrInvalidOffset", func(t *testing.T) {
		fx := createTestKernel()
		binary.LittleEndian.PutUint16(fx.file[62:64], 9)

		_, err := Load(fx.file)
		assert.ErrorIs(t, err, types.ErrInvalidOffset)
	})
}

func TestLookupSymbol(t *testing.T) {
	fx := createTestKernel()
	image, err := Parse(fx.file)
	require.NoError(t, err)

	t.Run("finds an exported symbol", func(t *testing.T) {
		sym, err := image.LookupSymbol(SymbolBootboot)
		require.NoError(t, err)
		require.NotNil(t, sym)
		assert.Equal(t, uint64(testEntry), sym.Value)
	})

	t.Run("returns nil for an unexported symbol", func(t *testing.T) {
		sym, err := image.LookupSymbol("mmio")
		require.NoError(t, err)
		assert.Nil(t, sym)
	})
}
