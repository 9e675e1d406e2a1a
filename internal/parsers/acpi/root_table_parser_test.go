package acpi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootimage/internal/firmware"
	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

const (
	testBase      = 0x1000
	testRsdpAddr  = 0x1000
	testTableAddr = 0x2000
)

// setChecksum stores the value at index at that makes the whole slice sum
// to zero.
func setChecksum(data []byte, at int) {
	data[at] = 0
	data[at] = -helpers.Checksum(data)
}

// createValidSdt builds an RSDT or XSDT with the given entries region and a
// correct whole-table checksum.
func createValidSdt(signature string, entries []byte) []byte {
	data := make([]byte, types.SdtHeaderSize+len(entries))
	copy(data[0:4], signature)
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)))
	data[8] = 1
	copy(data[10:16], "GOBOOT")
	copy(data[16:24], "GOBOOTHW")
	copy(data[types.SdtHeaderSize:], entries)
	setChecksum(data, 9)
	return data
}

// createValidRsdp builds an ACPI 1.0 RSDP pointing at rsdtAddr.
func createValidRsdp(rsdtAddr uint32) []byte {
	data := make([]byte, types.RsdpSize)
	copy(data[0:8], types.RsdpSignature)
	copy(data[9:15], "GOBOOT")
	data[15] = 0
	binary.LittleEndian.PutUint32(data[16:20], rsdtAddr)
	setChecksum(data, 8)
	return data
}

// createValidXsdp builds an ACPI 2.0 root pointer with both checksums
// correct, pointing at xsdtAddr.
func createValidXsdp(xsdtAddr uint64) []byte {
	data := make([]byte, types.XsdpSize)
	copy(data[0:8], types.RsdpSignature)
	copy(data[9:15], "GOBOOT")
	data[15] = types.RsdpRevisionACPI2
	binary.LittleEndian.PutUint32(data[20:24], types.XsdpSize)
	binary.LittleEndian.PutUint64(data[24:32], xsdtAddr)
	setChecksum(data[:types.RsdpSize], 8)
	setChecksum(data, 32)
	return data
}

// snapshot lays rsdp out at testRsdpAddr and table at testTableAddr inside
// a single memory view.
func snapshot(rsdp, table []byte) *firmware.SnapshotMemory {
	data := make([]byte, 0x2000+len(table))
	copy(data[testRsdpAddr-testBase:], rsdp)
	copy(data[testTableAddr-testBase:], table)
	return firmware.NewSnapshotMemory(testBase, data)
}

func TestParseRootTableAt(t *testing.T) {
	t.Run("valid ACPI 1.0 chain parses", func(t *testing.T) {
		entries := []byte{0xef, 0xbe, 0xad, 0xde}
		mem := snapshot(createValidRsdp(testTableAddr), createValidSdt(types.SdtSignatureRSDT, entries))

		table, err := ParseRootTableAt(mem, testRsdpAddr)
		require.NoError(t, err)

		assert.Equal(t, types.SdtSignatureRSDT, table.Header.SignatureString())
		assert.Equal(t, uint32(types.SdtHeaderSize+len(entries)), table.Header.Length)
		assert.Equal(t, entries, table.Entries)
		assert.Equal(t, uint64(testTableAddr), table.Address)
		assert.Equal(t, 4, table.EntrySize())
		assert.Equal(t, 1, table.EntryCount())
	})

	t.Run("valid ACPI 2.0 chain parses via XSDT", func(t *testing.T) {
		entries := make([]byte, 16)
		binary.LittleEndian.PutUint64(entries[0:8], 0xfee00000)
		binary.LittleEndian.PutUint64(entries[8:16], 0xfed00000)
		mem := snapshot(createValidXsdp(testTableAddr), createValidSdt(types.SdtSignatureXSDT, entries))

		table, err := ParseRootTableAt(mem, testRsdpAddr)
		require.NoError(t, err)

		assert.Equal(t, types.SdtSignatureXSDT, table.Header.SignatureString())
		assert.Equal(t, 8, table.EntrySize())
		assert.Equal(t, []uint64{0xfee00000, 0xfed00000}, EntryAddresses(table))
	})

	t.Run("config table pointing straight at an RSDT is accepted", func(t *testing.T) {
		table := createValidSdt(types.SdtSignatureRSDT, []byte{1, 2, 3, 4})
		mem := firmware.NewSnapshotMemory(testBase, table)

		got, err := ParseRootTableAt(mem, testBase)
		require.NoError(t, err)
		assert.Equal(t, types.SdtSignatureRSDT, got.Header.SignatureString())
	})

	t.Run("null RSDP address fails with ErrInvalidPointer", func(t *testing.T) {
		mem := snapshot(createValidRsdp(testTableAddr), createValidSdt(types.SdtSignatureRSDT, nil))
		_, err := ParseRootTableAt(mem, 0)
		assert.ErrorIs(t, err, types.ErrInvalidPointer)
	})

	t.Run("corrupted RSDP signature fails with ErrInvalidSignature", func(t *testing.T) {
		rsdp := createValidRsdp(testTableAddr)
		rsdp[0] = 'X'
		mem := snapshot(rsdp, createValidSdt(types.SdtSignatureRSDT, nil))

		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("corrupted RSDP checksum fails with ErrFailedChecksum", func(t *testing.T) {
		rsdp := createValidRsdp(testTableAddr)
		rsdp[8] += 1
		mem := snapshot(rsdp, createValidSdt(types.SdtSignatureRSDT, nil))

		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrFailedChecksum)
	})

	t.Run("corrupted extended checksum fails with ErrFailedChecksum", func(t *testing.T) {
		xsdp := createValidXsdp(testTableAddr)
		xsdp[32] += 1
		mem := snapshot(xsdp, createValidSdt(types.SdtSignatureXSDT, nil))

		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrFailedChecksum)
	})

	t.Run("null table pointer fails with ErrInvalidPointer", func(t *testing.T) {
		mem := snapshot(createValidRsdp(0), nil)
		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrInvalidPointer)
	})

	t.Run("bad system table signature fails with ErrInvalidSignature", func(t *testing.T) {
		table := createValidSdt(types.SdtSignatureRSDT, nil)
		copy(table[0:4], "FACP")
		setChecksum(table, 9)
		mem := snapshot(createValidRsdp(testTableAddr), table)

		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("table length below header size fails with ErrInvalidSize", func(t *testing.T) {
		table := createValidSdt(types.SdtSignatureRSDT, nil)
		binary.LittleEndian.PutUint32(table[4:8], types.SdtHeaderSize-1)
		setChecksum(table, 9)
		mem := snapshot(createValidRsdp(testTableAddr), table)

		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrInvalidSize)
	})

	t.Run("corrupted table checksum fails with ErrFailedChecksum", func(t *testing.T) {
		table := createValidSdt(types.SdtSignatureRSDT, []byte{1, 2, 3, 4})
		table[len(table)-1] += 1
		mem := snapshot(createValidRsdp(testTableAddr), table)

		_, err := ParseRootTableAt(mem, testRsdpAddr)
		assert.ErrorIs(t, err, types.ErrFailedChecksum)
	})
}

func TestParseRootTable(t *testing.T) {
	t.Run("locates the RSDP through the configuration table", func(t *testing.T) {
		mem := snapshot(createValidRsdp(testTableAddr), createValidSdt(types.SdtSignatureRSDT, nil))
		entries := []firmware.ConfigTableEntry{{
			Capability: firmware.ACPI10TableGUID,
			Address:    testRsdpAddr,
		}}

		table, err := ParseRootTable(mem, entries)
		require.NoError(t, err)
		assert.Equal(t, types.SdtSignatureRSDT, table.Header.SignatureString())
	})

	t.Run("fails with ErrNoTable when firmware publishes no ACPI entry", func(t *testing.T) {
		mem := firmware.NewSnapshotMemory(testBase, nil)
		_, err := ParseRootTable(mem, nil)
		assert.ErrorIs(t, err, types.ErrNoTable)
	})
}
