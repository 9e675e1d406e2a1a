package types

// SMBIOS 32-bit entry point (SMBIOS 3.5, section 5.2.1)
// The entry point structure anchors the SMBIOS structure table in physical
// memory. Only the 32-bit ("_SM_") entry point is consumed by the loader.

// SmbiosAnchor is the 4-byte anchor string of the 32-bit entry point.
const SmbiosAnchor = "_SM_"

// SmbiosEntryPointSize is the size of the full 32-bit entry point
// structure. The checksum is computed over EntryPointLength bytes, which
// for every published revision equals this size.
const SmbiosEntryPointSize = 31

// SmbiosEntryPoint represents the SMBIOS 32-bit entry point structure.
// Reference: SMBIOS 3.5, table 1
type SmbiosEntryPoint struct {
	// The anchor string. Must equal SmbiosAnchor.
	Anchor [4]byte
	// A value that makes EntryPointLength bytes sum to zero.
	Checksum uint8
	// The length of the entry point structure, and the extent of the
	// checksum.
	EntryPointLength uint8
	// The major version of the SMBIOS specification implemented.
	VersionMajor uint8
	// The minor version of the SMBIOS specification implemented.
	VersionMinor uint8
	// The size of the largest structure in the structure table.
	MaxStructSize uint16
	// The entry point revision. 0 for the formatted area below.
	EntryPointRevision uint8
	// Revision-specific formatted area. Zero for revision 0.
	FormattedArea [5]byte
	// The intermediate anchor string, "_DMI_".
	IntermediateAnchor [5]byte
	// A value that makes the last 15 bytes of the structure sum to zero.
	IntermediateChecksum uint8
	// The total length of the structure table in bytes.
	TableLength uint16
	// The 32-bit physical address of the structure table.
	TableAddress uint32
	// The number of structures in the structure table.
	StructureCount uint16
	// The SMBIOS version in packed BCD, 0x00 when using the version fields.
	BcdRevision uint8
}

// Version returns the implemented SMBIOS version as (major, minor).
func (e *SmbiosEntryPoint) Version() (uint8, uint8) {
	return e.VersionMajor, e.VersionMinor
}

// AnchorString returns the anchor bytes as a string.
func (e *SmbiosEntryPoint) AnchorString() string {
	return string(e.Anchor[:])
}
