// Package bootboot assembles and decodes the BOOTBOOT page handed to the
// kernel: the fixed header followed by the packed memory map.
package bootboot

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// MaxMapEntries is the number of memory map entries that fit in the
// BOOTBOOT page after the fixed header.
const MaxMapEntries = (types.BootbootMaxSize - types.BootbootHeaderSize) / types.MMapEntrySize

// Build serializes the header and memory map into a full BOOTBOOT page.
// The magic and size fields are filled in here; a map with more entries
// than the page can carry is rejected.
func Build(header *types.BootbootHeader, mmap []types.MMapEntry) ([]byte, error) {
	if len(mmap) > MaxMapEntries {
		return nil, fmt.Errorf("memory map of %d entries exceeds the %d the page holds: %w",
			len(mmap), MaxMapEntries, types.ErrInvalidSize)
	}

	page := make([]byte, types.BootbootMaxSize)
	copy(page[0:4], types.BootbootMagic[:])
	binary.LittleEndian.PutUint32(page[4:8],
		uint32(types.BootbootHeaderSize+len(mmap)*types.MMapEntrySize))
	page[8] = uint8(header.Protocol)
	page[9] = header.FbType
	binary.LittleEndian.PutUint16(page[10:12], header.NumCores)
	binary.LittleEndian.PutUint16(page[12:14], header.BspID)
	binary.LittleEndian.PutUint16(page[14:16], uint16(header.Timezone))
	copy(page[16:24], header.DateTime[:])
	binary.LittleEndian.PutUint64(page[24:32], header.Initrd.Ptr)
	binary.LittleEndian.PutUint64(page[32:40], header.Initrd.Size)
	binary.LittleEndian.PutUint64(page[40:48], header.Fb.Ptr)
	binary.LittleEndian.PutUint32(page[48:52], header.Fb.Size)
	binary.LittleEndian.PutUint32(page[52:56], header.Fb.Width)
	binary.LittleEndian.PutUint32(page[56:60], header.Fb.Height)
	binary.LittleEndian.PutUint32(page[60:64], header.Fb.Scanline)
	binary.LittleEndian.PutUint64(page[64:72], header.AcpiPtr)
	binary.LittleEndian.PutUint64(page[72:80], header.SmbiosPtr)
	binary.LittleEndian.PutUint64(page[80:88], header.EfiPtr)
	binary.LittleEndian.PutUint64(page[88:96], header.MpPtr)

	for i, entry := range mmap {
		off := types.BootbootHeaderSize + i*types.MMapEntrySize
		binary.LittleEndian.PutUint64(page[off:off+8], entry.Ptr)
		binary.LittleEndian.PutUint64(page[off+8:off+16], entry.Packed)
	}

	return page, nil
}

// Decode reads a BOOTBOOT page back into its header and memory map. Used
// by the inspection tooling to verify an assembled page.
func Decode(page []byte) (*types.BootbootHeader, []types.MMapEntry, error) {
	if len(page) < types.BootbootHeaderSize {
		return nil, nil, fmt.Errorf("page of %d bytes: %w", len(page), types.ErrInvalidSize)
	}
	if string(page[0:4]) != string(types.BootbootMagic[:]) {
		return nil, nil, fmt.Errorf("magic %q: %w", page[0:4], types.ErrInvalidSignature)
	}

	size := binary.LittleEndian.Uint32(page[4:8])
	if size < types.BootbootHeaderSize || uint64(size) > uint64(len(page)) ||
		(size-types.BootbootHeaderSize)%types.MMapEntrySize != 0 {
		return nil, nil, fmt.Errorf("declared size %d: %w", size, types.ErrInvalidSize)
	}

	header := &types.BootbootHeader{
		Protocol: types.BootbootProtocol(page[8]),
		FbType:   page[9],
		NumCores: binary.LittleEndian.Uint16(page[10:12]),
		BspID:    binary.LittleEndian.Uint16(page[12:14]),
		Timezone: int16(binary.LittleEndian.Uint16(page[14:16])),
		Initrd: types.InitrdRegion{
			Ptr:  binary.LittleEndian.Uint64(page[24:32]),
			Size: binary.LittleEndian.Uint64(page[32:40]),
		},
		Fb: types.Framebuffer{
			Ptr:      binary.LittleEndian.Uint64(page[40:48]),
			Size:     binary.LittleEndian.Uint32(page[48:52]),
			Width:    binary.LittleEndian.Uint32(page[52:56]),
			Height:   binary.LittleEndian.Uint32(page[56:60]),
			Scanline: binary.LittleEndian.Uint32(page[60:64]),
		},
		AcpiPtr:   binary.LittleEndian.Uint64(page[64:72]),
		SmbiosPtr: binary.LittleEndian.Uint64(page[72:80]),
		EfiPtr:    binary.LittleEndian.Uint64(page[80:88]),
		MpPtr:     binary.LittleEndian.Uint64(page[88:96]),
	}
	copy(header.Magic[:], page[0:4])
	header.Size = size
	copy(header.DateTime[:], page[16:24])

	count := int(size-types.BootbootHeaderSize) / types.MMapEntrySize
	mmap := make([]types.MMapEntry, count)
	for i := range mmap {
		off := types.BootbootHeaderSize + i*types.MMapEntrySize
		mmap[i] = types.MMapEntry{
			Ptr:    binary.LittleEndian.Uint64(page[off : off+8]),
			Packed: binary.LittleEndian.Uint64(page[off+8 : off+16]),
		}
	}

	return header, mmap, nil
}
