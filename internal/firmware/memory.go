package firmware

import (
	"fmt"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// Memory is a read-only, bounds-checked view of physical memory. Parsers
// read fixed-width regions through it instead of reinterpreting raw
// pointers, so an out-of-range or null firmware address surfaces as an
// error rather than undefined behavior.
type Memory interface {
	// ReadAt returns length bytes starting at the physical address. The
	// returned slice must not be modified. A null address or a read past
	// the end of the view fails with ErrInvalidPointer.
	ReadAt(address uint64, length uint32) ([]byte, error)
}

// SnapshotMemory is a Memory backed by an in-memory capture of a physical
// address range, as produced by a firmware dump. Address zero is always
// treated as a null pointer even when the snapshot base is zero.
type SnapshotMemory struct {
	base uint64
	data []byte
}

var _ Memory = (*SnapshotMemory)(nil)

// NewSnapshotMemory creates a memory view over data as captured starting at
// physical address base.
func NewSnapshotMemory(base uint64, data []byte) *SnapshotMemory {
	return &SnapshotMemory{base: base, data: data}
}

// ReadAt implements Memory.
func (m *SnapshotMemory) ReadAt(address uint64, length uint32) ([]byte, error) {
	if address == 0 {
		return nil, fmt.Errorf("read of null address: %w", types.ErrInvalidPointer)
	}
	if address < m.base {
		return nil, fmt.Errorf("address 0x%x below snapshot base 0x%x: %w",
			address, m.base, types.ErrInvalidPointer)
	}
	offset := address - m.base
	end := offset + uint64(length)
	if end < offset || end > uint64(len(m.data)) {
		return nil, fmt.Errorf("read of %d bytes at 0x%x exceeds snapshot: %w",
			length, address, types.ErrInvalidPointer)
	}
	return m.data[offset:end], nil
}
