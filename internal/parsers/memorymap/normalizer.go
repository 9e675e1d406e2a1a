// Package memorymap converts the firmware memory map into the compact,
// sorted, merged BOOTBOOT map handed to the kernel.
package memorymap

import (
	"fmt"
	"math"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// ClassifyEfiType maps a firmware memory type to its BOOTBOOT region type.
// The table is total: every value not listed is Unknown.
func ClassifyEfiType(efiType uint32) types.MMapEntryType {
	switch efiType {
	case types.EfiReservedMemoryType,
		types.EfiRuntimeServicesCode,
		types.EfiRuntimeServicesData,
		types.EfiUnusableMemory,
		types.EfiPalCode,
		types.EfiPersistentMemory:
		return types.MMapUsed
	case types.EfiLoaderCode,
		types.EfiLoaderData,
		types.EfiBootServicesCode,
		types.EfiBootServicesData,
		types.EfiConventionalMemory:
		return types.MMapFree
	case types.EfiACPIReclaimMemory,
		types.EfiACPIMemoryNVS:
		return types.MMapAcpi
	case types.EfiMemoryMappedIO,
		types.EfiMemoryMappedIOPortSpace:
		return types.MMapMmio
	default:
		return types.MMapUnknown
	}
}

// NewEntry packs a region into a memory map entry. The byte count is
// stored in the high 60 bits with the type tag in the low four; counts
// beyond the packable range are rejected. Counts are expected to be
// 16-byte multiples (page-granular regions always are); stray low bits
// cannot be represented and are dropped.
func NewEntry(ptr, sizeBytes uint64, entryType types.MMapEntryType) (types.MMapEntry, error) {
	if sizeBytes > math.MaxUint64>>4 {
		return types.MMapEntry{}, fmt.Errorf("region at 0x%x of 0x%x bytes: %w",
			ptr, sizeBytes, types.ErrEntryTooLarge)
	}
	return types.MMapEntry{
		Ptr:    ptr,
		Packed: sizeBytes&^0xf | uint64(entryType)&0xf,
	}, nil
}

// Normalize converts firmware memory descriptors into a BOOTBOOT memory
// map: classified, packed, sorted by address and merged. The result is a
// fixed point: normalizing it again yields the identical sequence.
func Normalize(descriptors []types.MemoryDescriptor) ([]types.MMapEntry, error) {
	entries := make([]types.MMapEntry, 0, len(descriptors))
	for _, desc := range descriptors {
		// The byte count must not wrap before NewEntry sees it.
		if desc.PageCount > math.MaxUint64/types.PageSize {
			return nil, fmt.Errorf("descriptor at 0x%x spans 0x%x pages: %w",
				desc.PhysicalStart, desc.PageCount, types.ErrEntryTooLarge)
		}
		entry, err := NewEntry(
			desc.PhysicalStart,
			desc.PageCount*types.PageSize,
			ClassifyEfiType(desc.Type),
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return NormalizeEntries(entries), nil
}

// NormalizeEntries sorts packed entries by address and merges neighbors of
// the same type that are exactly contiguous. Entries of the same type with
// a gap between them stay distinct, so the map never misrepresents holes
// in physical memory.
func NormalizeEntries(entries []types.MMapEntry) []types.MMapEntry {
	sorted := make([]types.MMapEntry, len(entries))
	copy(sorted, entries)
	mergeSort(sorted)

	if len(sorted) == 0 {
		return sorted
	}

	merged := make([]types.MMapEntry, 0, len(sorted))
	merged = append(merged, sorted[0])
	for _, entry := range sorted[1:] {
		last := &merged[len(merged)-1]
		if isNext(*last, entry) {
			last.Packed += entry.Size()
		} else {
			merged = append(merged, entry)
		}
	}
	return merged
}

// isNext reports whether next starts exactly where entry ends and carries
// the same type tag, the merge predicate.
func isNext(entry, next types.MMapEntry) bool {
	return entry.Ptr+entry.Size() == next.Ptr &&
		entry.EntryType() == next.EntryType()
}

// mergeSort stably sorts entries by ascending address. Stability keeps
// entries with equal addresses in firmware enumeration order, so the
// normalized map does not depend on how the descriptors were delivered.
func mergeSort(entries []types.MMapEntry) {
	if len(entries) < 2 {
		return
	}
	buf := make([]types.MMapEntry, len(entries))
	sortInto(entries, buf)
}

func sortInto(entries, buf []types.MMapEntry) {
	if len(entries) < 2 {
		return
	}
	mid := len(entries) / 2
	sortInto(entries[:mid], buf[:mid])
	sortInto(entries[mid:], buf[mid:])

	copy(buf, entries)
	lo, hi := buf[:mid], buf[mid:]
	i, j := 0, 0
	for k := 0; k < len(entries); k++ {
		switch {
		case i == len(lo):
			entries[k] = hi[j]
			j++
		case j == len(hi) || lo[i].Ptr <= hi[j].Ptr:
			entries[k] = lo[i]
			i++
		default:
			entries[k] = hi[j]
			j++
		}
	}
}
