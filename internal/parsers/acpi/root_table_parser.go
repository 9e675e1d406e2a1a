// Package acpi locates and validates the ACPI root system description
// table. The walk starts at the RSDP published in the firmware
// configuration table and ends with a checksummed RSDT or XSDT view.
package acpi

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/firmware"
	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// ParseRootTable locates the ACPI entry in the configuration table and
// walks RSDP -> (XSDP) -> RSDT/XSDT, validating every signature and
// checksum on the way. ACPI 2.0 is preferred at location time; fallback to
// a 1.0 entry after a 2.0 parse failure is the caller's policy.
func ParseRootTable(mem firmware.Memory, entries []firmware.ConfigTableEntry) (*types.SystemDescriptionTable, error) {
	entry, err := firmware.FindACPI(entries)
	if err != nil {
		return nil, err
	}
	return ParseRootTableAt(mem, entry.Address)
}

// ParseRootTableAt parses the root table reachable from an RSDP at the
// given physical address. Some firmware publishes the address of the
// RSDT/XSDT itself instead of an RSDP; that quirk is detected by signature
// and supported.
func ParseRootTableAt(mem firmware.Memory, address uint64) (*types.SystemDescriptionTable, error) {
	if address == 0 {
		return nil, fmt.Errorf("RSDP address is null: %w", types.ErrInvalidPointer)
	}

	head, err := mem.ReadAt(address, 8)
	if err != nil {
		return nil, fmt.Errorf("reading RSDP signature: %w", err)
	}

	// Firmware quirk: the configuration table entry points straight at a
	// system description table.
	switch string(head[:4]) {
	case types.SdtSignatureRSDT, types.SdtSignatureXSDT:
		return parseSystemTable(mem, address)
	}

	if string(head) != types.RsdpSignature {
		return nil, fmt.Errorf("RSDP signature %q: %w", head, types.ErrInvalidSignature)
	}

	rsdpRaw, err := mem.ReadAt(address, types.RsdpSize)
	if err != nil {
		return nil, fmt.Errorf("reading RSDP: %w", err)
	}
	if !helpers.ChecksumValid(rsdpRaw) {
		return nil, fmt.Errorf("ACPI 1.0 RSDP checksum: %w", types.ErrFailedChecksum)
	}

	rsdp := decodeRsdp(rsdpRaw)

	tableAddress := uint64(rsdp.RsdtAddress)
	if rsdp.Revision >= types.RsdpRevisionACPI2 {
		xsdpRaw, err := mem.ReadAt(address, types.XsdpSize)
		if err != nil {
			return nil, fmt.Errorf("reading XSDP: %w", err)
		}
		if !helpers.ChecksumValid(xsdpRaw) {
			return nil, fmt.Errorf("ACPI 2.0 XSDP checksum: %w", types.ErrFailedChecksum)
		}
		xsdp := decodeXsdp(xsdpRaw)
		tableAddress = xsdp.XsdtAddress
	}

	return parseSystemTable(mem, tableAddress)
}

// parseSystemTable validates the RSDT/XSDT at the given address and returns
// the table view: header plus the trailing entries region.
func parseSystemTable(mem firmware.Memory, address uint64) (*types.SystemDescriptionTable, error) {
	if address == 0 {
		return nil, fmt.Errorf("system table address is null: %w", types.ErrInvalidPointer)
	}

	headerRaw, err := mem.ReadAt(address, types.SdtHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("reading system table header: %w", err)
	}

	header := decodeSdtHeader(headerRaw)
	switch header.SignatureString() {
	case types.SdtSignatureRSDT, types.SdtSignatureXSDT:
	default:
		return nil, fmt.Errorf("system table signature %q: %w",
			header.Signature, types.ErrInvalidSignature)
	}

	if header.Length < types.SdtHeaderSize {
		return nil, fmt.Errorf("%s declares length %d, below the %d byte header: %w",
			header.SignatureString(), header.Length, types.SdtHeaderSize, types.ErrInvalidSize)
	}

	tableRaw, err := mem.ReadAt(address, header.Length)
	if err != nil {
		return nil, fmt.Errorf("reading %s of %d bytes: %w",
			header.SignatureString(), header.Length, err)
	}
	if !helpers.ChecksumValid(tableRaw) {
		return nil, fmt.Errorf("%s checksum over %d bytes: %w",
			header.SignatureString(), header.Length, types.ErrFailedChecksum)
	}

	entries := make([]byte, header.Length-types.SdtHeaderSize)
	copy(entries, tableRaw[types.SdtHeaderSize:])

	return &types.SystemDescriptionTable{
		Header:  header,
		Entries: entries,
		Address: address,
	}, nil
}

// EntryAddresses unpacks the table pointers from a validated root table.
// RSDT entries are 32-bit and zero-extended; XSDT entries are 64-bit.
func EntryAddresses(table *types.SystemDescriptionTable) []uint64 {
	size := table.EntrySize()
	count := len(table.Entries) / size
	out := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		raw := table.Entries[i*size : (i+1)*size]
		if size == 8 {
			out = append(out, binary.LittleEndian.Uint64(raw))
		} else {
			out = append(out, uint64(binary.LittleEndian.Uint32(raw)))
		}
	}
	return out
}

func decodeRsdp(data []byte) types.Rsdp {
	var r types.Rsdp
	copy(r.Signature[:], data[0:8])
	r.Checksum = data[8]
	copy(r.OemID[:], data[9:15])
	r.Revision = data[15]
	r.RsdtAddress = binary.LittleEndian.Uint32(data[16:20])
	return r
}

func decodeXsdp(data []byte) types.Xsdp {
	var x types.Xsdp
	x.Rsdp = decodeRsdp(data)
	x.Length = binary.LittleEndian.Uint32(data[20:24])
	x.XsdtAddress = binary.LittleEndian.Uint64(data[24:32])
	x.ExtendedChecksum = data[32]
	copy(x.Reserved[:], data[33:36])
	return x
}

func decodeSdtHeader(data []byte) types.SdtHeader {
	var h types.SdtHeader
	copy(h.Signature[:], data[0:4])
	h.Length = binary.LittleEndian.Uint32(data[4:8])
	h.Revision = data[8]
	h.Checksum = data[9]
	copy(h.OemID[:], data[10:16])
	copy(h.OemTableID[:], data[16:24])
	h.OemRevision = binary.LittleEndian.Uint32(data[24:28])
	h.CreatorID = binary.LittleEndian.Uint32(data[28:32])
	h.CreatorRevision = binary.LittleEndian.Uint32(data[32:36])
	return h
}
