// Package firmware models the boundary between the loader and the
// firmware: the configuration table handed over at boot and a bounds-checked
// view of physical memory. Everything here is read-only for the life of the
// boot session.
package firmware

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// Capability GUIDs used to tag configuration table entries.
// Reference: UEFI 2.10, section 4.6
var (
	// ACPI20TableGUID tags the ACPI 2.0 (and later) RSDP.
	ACPI20TableGUID = uuid.MustParse("8868e871-e4f1-11d3-bc22-0080c73c8881")
	// ACPI10TableGUID tags the ACPI 1.0 RSDP.
	ACPI10TableGUID = uuid.MustParse("eb9d2d30-2d88-11d3-9a16-0090273fc14d")
	// SMBIOSTableGUID tags the SMBIOS 32-bit entry point.
	SMBIOSTableGUID = uuid.MustParse("eb9d2d31-2d88-11d3-9a16-0090273fc14d")
)

// ConfigTableEntry is one entry of the firmware configuration table: a
// capability GUID and the physical address of the structure it tags. The
// table is owned by the firmware; entries are read, never modified.
type ConfigTableEntry struct {
	// The capability GUID identifying what the entry points at.
	Capability uuid.UUID
	// The physical address of the tagged structure.
	Address uint64
}

// FindACPI returns the configuration table entry for the ACPI root pointer,
// preferring ACPI 2.0 over ACPI 1.0. Returns ErrNoTable when neither
// revision is present.
func FindACPI(entries []ConfigTableEntry) (ConfigTableEntry, error) {
	for _, e := range entries {
		if e.Capability == ACPI20TableGUID {
			return e, nil
		}
	}
	for _, e := range entries {
		if e.Capability == ACPI10TableGUID {
			return e, nil
		}
	}
	return ConfigTableEntry{}, fmt.Errorf("ACPI: %w", types.ErrNoTable)
}

// FindSMBIOS returns the configuration table entry for the SMBIOS 32-bit
// entry point, or ErrNoTable when the firmware does not publish one.
func FindSMBIOS(entries []ConfigTableEntry) (ConfigTableEntry, error) {
	for _, e := range entries {
		if e.Capability == SMBIOSTableGUID {
			return e, nil
		}
	}
	return ConfigTableEntry{}, fmt.Errorf("SMBIOS: %w", types.ErrNoTable)
}
