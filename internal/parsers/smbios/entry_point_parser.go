// Package smbios validates the SMBIOS 32-bit entry point published in the
// firmware configuration table.
package smbios

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/firmware"
	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// ParseEntryPoint locates the SMBIOS entry in the configuration table and
// validates the entry point structure it points at.
func ParseEntryPoint(mem firmware.Memory, entries []firmware.ConfigTableEntry) (*types.SmbiosEntryPoint, error) {
	entry, err := firmware.FindSMBIOS(entries)
	if err != nil {
		return nil, err
	}
	return ParseEntryPointAt(mem, entry.Address)
}

// ParseEntryPointAt validates the SMBIOS entry point at the given physical
// address: the "_SM_" anchor, then the checksum over exactly
// EntryPointLength bytes.
func ParseEntryPointAt(mem firmware.Memory, address uint64) (*types.SmbiosEntryPoint, error) {
	if address == 0 {
		return nil, fmt.Errorf("SMBIOS address is null: %w", types.ErrInvalidPointer)
	}

	raw, err := mem.ReadAt(address, types.SmbiosEntryPointSize)
	if err != nil {
		return nil, fmt.Errorf("reading SMBIOS entry point: %w", err)
	}

	if string(raw[0:4]) != types.SmbiosAnchor {
		return nil, fmt.Errorf("SMBIOS anchor %q: %w", raw[0:4], types.ErrInvalidSignature)
	}

	ep := decodeEntryPoint(raw)

	// The checksum extent is declared by the structure itself, but it can
	// never be shorter than the structure or the checksum turns vacuous.
	if ep.EntryPointLength < types.SmbiosEntryPointSize {
		return nil, fmt.Errorf("SMBIOS entry point length %d: %w",
			ep.EntryPointLength, types.ErrInvalidSize)
	}
	sumRaw, err := mem.ReadAt(address, uint32(ep.EntryPointLength))
	if err != nil {
		return nil, fmt.Errorf("reading %d checksummed bytes: %w", ep.EntryPointLength, err)
	}
	if !helpers.ChecksumValid(sumRaw) {
		return nil, fmt.Errorf("SMBIOS entry point checksum over %d bytes: %w",
			ep.EntryPointLength, types.ErrFailedChecksum)
	}

	return &ep, nil
}

func decodeEntryPoint(data []byte) types.SmbiosEntryPoint {
	var ep types.SmbiosEntryPoint
	copy(ep.Anchor[:], data[0:4])
	ep.Checksum = data[4]
	ep.EntryPointLength = data[5]
	ep.VersionMajor = data[6]
	ep.VersionMinor = data[7]
	ep.MaxStructSize = binary.LittleEndian.Uint16(data[8:10])
	ep.EntryPointRevision = data[10]
	copy(ep.FormattedArea[:], data[11:16])
	copy(ep.IntermediateAnchor[:], data[16:21])
	ep.IntermediateChecksum = data[21]
	ep.TableLength = binary.LittleEndian.Uint16(data[22:24])
	ep.TableAddress = binary.LittleEndian.Uint32(data[24:28])
	ep.StructureCount = binary.LittleEndian.Uint16(data[28:30])
	ep.BcdRevision = data[30]
	return ep
}
