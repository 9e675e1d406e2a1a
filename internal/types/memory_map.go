package types

// Firmware memory map (UEFI 2.10, section 7.2) and the packed BOOTBOOT
// memory map handed to the kernel.

// PageSize is the EFI page size in bytes. Firmware reports region sizes in
// whole pages, which keeps packed sizes 16-byte aligned.
const PageSize = 4096

// EFI memory types as reported by GetMemoryMap.
// Reference: UEFI 2.10, table 7.5
const (
	EfiReservedMemoryType uint32 = iota
	EfiLoaderCode
	EfiLoaderData
	EfiBootServicesCode
	EfiBootServicesData
	EfiRuntimeServicesCode
	EfiRuntimeServicesData
	EfiConventionalMemory
	EfiUnusableMemory
	EfiACPIReclaimMemory
	EfiACPIMemoryNVS
	EfiMemoryMappedIO
	EfiMemoryMappedIOPortSpace
	EfiPalCode
	EfiPersistentMemory
)

// MemoryDescriptor represents a single firmware memory map entry. Only the
// fields the loader consumes are modeled; the descriptor is transient and
// owned by the firmware memory map query.
type MemoryDescriptor struct {
	// The firmware memory type of the region.
	Type uint32
	// The physical address of the first byte of the region. Page aligned.
	PhysicalStart uint64
	// The number of 4 KiB pages in the region.
	PageCount uint64
}

// MMapEntryType is the BOOTBOOT memory region type carried in the low four
// bits of a packed memory map entry.
type MMapEntryType uint8

const (
	// MMapUsed marks memory the kernel must not touch.
	MMapUsed MMapEntryType = 0
	// MMapFree marks memory available to the kernel.
	MMapFree MMapEntryType = 1
	// MMapAcpi marks memory holding ACPI tables.
	MMapAcpi MMapEntryType = 2
	// MMapMmio marks memory-mapped device regions.
	MMapMmio MMapEntryType = 3
	// MMapUnknown covers every tag value of 4 and above.
	MMapUnknown MMapEntryType = 4
)

// MMapEntryTypeFromTag converts a raw 4-bit tag into an entry type. Tags
// above MMapMmio all decode to MMapUnknown.
func MMapEntryTypeFromTag(tag uint8) MMapEntryType {
	switch MMapEntryType(tag) {
	case MMapUsed, MMapFree, MMapAcpi, MMapMmio:
		return MMapEntryType(tag)
	default:
		return MMapUnknown
	}
}

// String returns the BOOTBOOT display name of the entry type.
func (t MMapEntryType) String() string {
	switch t {
	case MMapUsed:
		return "USED"
	case MMapFree:
		return "FREE"
	case MMapAcpi:
		return "ACPI"
	case MMapMmio:
		return "MMIO"
	default:
		return "UNKNOWN"
	}
}

// MMapEntrySize is the wire size of one packed memory map entry.
const MMapEntrySize = 16

// MMapEntry is one packed BOOTBOOT memory map entry: the physical start
// address and a size field whose low four bits hold the type tag. The byte
// count is stored shifted right by four, so a count must be a multiple of
// 16 to pack losslessly; page-granular regions always are.
type MMapEntry struct {
	// The physical address of the first byte of the region.
	Ptr uint64
	// The packed size and type tag: (byteCount >> 4) << 4 | tag.
	Packed uint64
}

// Size returns the region size in bytes.
func (e MMapEntry) Size() uint64 {
	return e.Packed &^ 0xf
}

// EntryType returns the region type decoded from the low four bits.
func (e MMapEntry) EntryType() MMapEntryType {
	return MMapEntryTypeFromTag(uint8(e.Packed & 0xf))
}
