package types

import "fmt"

// BOOTBOOT protocol structures (BOOTBOOT protocol level 1/2)
// The loader assembles a single page holding this header and the packed
// memory map, and hands its address to the kernel.

// BootbootMagic is the 4-byte magic at the start of the BOOTBOOT header,
// "BOOT" when read as a string.
var BootbootMagic = [4]byte{'B', 'O', 'O', 'T'}

// BootbootHeaderSize is the size of the fixed part of the BOOTBOOT header.
// The memory map entries start immediately after it.
const BootbootHeaderSize = 128

// BootbootMaxSize is the size of the page holding the header and the
// memory map, bounding the number of map entries at 248.
const BootbootMaxSize = 4096

// LoaderType identifies the loader implementation, carried in bits 2-6 of
// the protocol byte.
type LoaderType uint8

const (
	LoaderBIOS     LoaderType = 0
	LoaderUEFI     LoaderType = 1
	LoaderRPi      LoaderType = 2
	LoaderCoreboot LoaderType = 3
)

// NewLoaderType validates a raw loader type value.
func NewLoaderType(v uint8) (LoaderType, error) {
	if v > uint8(LoaderCoreboot) {
		return 0, fmt.Errorf("invalid loader type %d", v)
	}
	return LoaderType(v), nil
}

// ProtocolLevel identifies the BOOTBOOT protocol level, carried in bits 0-1
// of the protocol byte.
type ProtocolLevel uint8

const (
	// ProtocolStatic kernels are mapped at addresses fixed at link time.
	ProtocolStatic ProtocolLevel = 1
	// ProtocolDynamic kernels export symbols the loader maps individually.
	ProtocolDynamic ProtocolLevel = 2
)

// NewProtocolLevel validates a raw protocol level value.
func NewProtocolLevel(v uint8) (ProtocolLevel, error) {
	if v != uint8(ProtocolStatic) && v != uint8(ProtocolDynamic) {
		return 0, fmt.Errorf("invalid protocol level %d", v)
	}
	return ProtocolLevel(v), nil
}

// BootbootProtocol is the packed protocol byte: level in bits 0-1, loader
// type in bits 2-6, big-endian flag in bit 7.
type BootbootProtocol uint8

// NewBootbootProtocol packs a protocol byte from its parts.
func NewBootbootProtocol(level ProtocolLevel, loader LoaderType, bigEndian bool) BootbootProtocol {
	p := uint8(level)&0x3 | uint8(loader)<<2&0x7c
	if bigEndian {
		p |= 0x80
	}
	return BootbootProtocol(p)
}

// Level returns the protocol level encoded in bits 0-1.
func (p BootbootProtocol) Level() (ProtocolLevel, error) {
	return NewProtocolLevel(uint8(p) & 0x3)
}

// LoaderType returns the loader type encoded in bits 2-6.
func (p BootbootProtocol) LoaderType() (LoaderType, error) {
	return NewLoaderType((uint8(p) & 0x7c) >> 2)
}

// IsBigEndian reports whether the kernel expects big-endian structures.
func (p BootbootProtocol) IsBigEndian() bool {
	return uint8(p)&0x80 == 0x80
}

// Framebuffer describes the linear framebuffer passed to the kernel.
type Framebuffer struct {
	// The physical address of the framebuffer.
	Ptr uint64
	// The framebuffer size in bytes.
	Size uint32
	// The horizontal resolution in pixels.
	Width uint32
	// The vertical resolution in pixels.
	Height uint32
	// The number of bytes per scanline.
	Scanline uint32
}

// InitrdRegion describes where the initrd was placed in memory.
type InitrdRegion struct {
	// The physical address of the first byte of the initrd.
	Ptr uint64
	// The initrd size in bytes.
	Size uint64
}

// BootbootHeader is the fixed part of the BOOTBOOT structure handed to the
// kernel. The packed memory map follows it in the same page.
type BootbootHeader struct {
	// The magic. Must equal BootbootMagic.
	Magic [4]byte
	// The total size of the header plus the memory map, in bytes.
	Size uint32
	// The packed protocol byte.
	Protocol BootbootProtocol
	// The framebuffer pixel format.
	FbType uint8
	// The number of processor cores.
	NumCores uint16
	// The APIC id of the bootstrap processor.
	BspID uint16
	// The timezone offset in minutes.
	Timezone int16
	// The boot date and time in BCD: yyyymmddhhiiss.
	DateTime [8]byte
	// The initrd location.
	Initrd InitrdRegion
	// The framebuffer description.
	Fb Framebuffer
	// The physical address of the ACPI RSDP (or the root table itself).
	AcpiPtr uint64
	// The physical address of the SMBIOS entry point, or zero.
	SmbiosPtr uint64
	// The physical address of the EFI system table, or zero.
	EfiPtr uint64
	// The physical address of the multiprocessor table, or zero.
	MpPtr uint64
	// Reserved for protocol extensions.
	Unused [4]uint64
}
