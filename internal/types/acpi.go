// Package types defines the on-memory firmware structures consumed by the
// boot discovery layer. All layouts are little-endian and byte-exact; every
// struct here is a decoded copy of firmware data, never a live overlay.
package types

// ACPI root pointer discovery (ACPI 6.4, section 5.2.5)
// The RSDP is handed to the loader through the EFI configuration table and
// locates the root system description table.

// RsdpSignature is the 8-byte signature of the root system description
// pointer. The trailing space is part of the signature.
const RsdpSignature = "RSD PTR "

// RsdpSize is the size of the ACPI 1.0 root pointer structure. The v1
// checksum covers exactly these bytes regardless of revision.
const RsdpSize = 20

// XsdpSize is the size of the extended (ACPI 2.0+) root pointer structure.
// The extended checksum covers all of it.
const XsdpSize = 36

// RsdpRevisionACPI2 is the lowest revision value that carries the extended
// fields. Revision 0 is ACPI 1.0; revisions 2 and up are ACPI 2.0 to 6.x.
const RsdpRevisionACPI2 = 2

// Rsdp represents the ACPI 1.0 root system description pointer.
// Reference: ACPI 6.4, table 5.3
type Rsdp struct {
	// The signature. Must equal RsdpSignature.
	Signature [8]byte
	// A value that makes the first 20 bytes sum to zero.
	Checksum uint8
	// An OEM-supplied identification string.
	OemID [6]byte
	// The revision of this structure. 0 for ACPI 1.0, 2 for ACPI 2.0+.
	Revision uint8
	// The 32-bit physical address of the RSDT.
	RsdtAddress uint32
}

// Xsdp represents the extended root system description pointer, valid only
// when Rsdp.Revision >= RsdpRevisionACPI2.
// Reference: ACPI 6.4, table 5.3
type Xsdp struct {
	Rsdp
	// The length, in bytes, of the entire structure.
	Length uint32
	// The 64-bit physical address of the XSDT.
	XsdtAddress uint64
	// A value that makes all 36 bytes sum to zero.
	ExtendedChecksum uint8
	// Reserved. Ignored on read.
	Reserved [3]byte
}

// System description tables (ACPI 6.4, section 5.2.6)

// SdtSignatureRSDT and SdtSignatureXSDT are the signatures of the two root
// tables. The RSDT carries 32-bit entry pointers, the XSDT 64-bit ones.
const (
	SdtSignatureRSDT = "RSDT"
	SdtSignatureXSDT = "XSDT"
)

// SdtHeaderSize is the size of the common system description table header.
const SdtHeaderSize = 36

// SdtHeader represents the header shared by every ACPI system description
// table. The checksum in it covers the whole table, header included.
// Reference: ACPI 6.4, table 5.4
type SdtHeader struct {
	// The table signature. "RSDT" or "XSDT" for the root tables.
	Signature [4]byte
	// The length, in bytes, of the entire table including this header.
	// Never less than SdtHeaderSize for a valid table.
	Length uint32
	// The revision of the structure corresponding to the signature.
	Revision uint8
	// A value that makes all Length bytes of the table sum to zero.
	Checksum uint8
	// An OEM-supplied identification string.
	OemID [6]byte
	// An OEM-supplied identifier for this particular table.
	OemTableID [8]byte
	// An OEM-supplied revision number for this table.
	OemRevision uint32
	// The vendor ID of the utility that created the table.
	CreatorID uint32
	// The revision of the utility that created the table.
	CreatorRevision uint32
}

// SignatureString returns the table signature as a string.
func (h *SdtHeader) SignatureString() string {
	return string(h.Signature[:])
}

// SystemDescriptionTable represents a validated root system description
// table: the fixed header plus the raw entries region that follows it. The
// entries region holds Length-36 bytes of packed table pointers whose width
// depends on the signature (4 bytes for RSDT, 8 for XSDT).
type SystemDescriptionTable struct {
	// The validated table header.
	Header SdtHeader
	// The raw bytes following the header, Header.Length-SdtHeaderSize long.
	Entries []byte
	// The physical address the table was read from.
	Address uint64
}

// EntrySize returns the width in bytes of a single entry pointer, derived
// from the table signature.
func (t *SystemDescriptionTable) EntrySize() int {
	if t.Header.SignatureString() == SdtSignatureXSDT {
		return 8
	}
	return 4
}

// EntryCount returns the number of table pointers in the entries region.
func (t *SystemDescriptionTable) EntryCount() int {
	return len(t.Entries) / t.EntrySize()
}
