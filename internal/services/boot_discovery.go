package services

import (
	goerrors "errors"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootimage/internal/firmware"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/acpi"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/bootboot"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/elf"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/environment"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/initrd"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/memorymap"
	"github.com/deploymenttheory/go-bootimage/internal/parsers/smbios"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// BootInputs bundles everything the firmware side hands the loader: the
// configuration table, the memory map query result, the initrd image and
// the pieces produced by collaborators outside this layer.
type BootInputs struct {
	// ConfigTable is the firmware configuration table.
	ConfigTable []firmware.ConfigTableEntry
	// MemoryDescriptors is the firmware memory map.
	MemoryDescriptors []types.MemoryDescriptor
	// Initrd is the raw initrd ustar archive.
	Initrd []byte
	// InitrdRegion is where the initrd was placed in physical memory.
	InitrdRegion types.InitrdRegion
	// Framebuffer is the linear framebuffer chosen by the graphics
	// layer.
	Framebuffer types.Framebuffer
	// EfiSystemTable is the physical address of the EFI system table.
	EfiSystemTable uint64
}

// BootInfo is everything discovery produces for the kernel handoff.
type BootInfo struct {
	// Acpi is the validated root system description table.
	Acpi *types.SystemDescriptionTable
	// AcpiAddress is the RSDP (or direct root table) address recorded in
	// the BOOTBOOT header.
	AcpiAddress uint64
	// Smbios is the validated SMBIOS entry point, nil when the firmware
	// publishes none.
	Smbios *types.SmbiosEntryPoint
	// SmbiosAddress is the address recorded in the BOOTBOOT header,
	// zero when absent.
	SmbiosAddress uint64
	// Environment is the parsed boot environment.
	Environment *environment.Environment
	// Kernel is the loaded kernel image.
	Kernel *elf.LoadedKernel
	// MemoryMap is the normalized BOOTBOOT memory map.
	MemoryMap []types.MMapEntry
	// Page is the assembled BOOTBOOT page.
	Page []byte
}

// BootDiscovery runs the full discovery sequence against a firmware
// memory view.
type BootDiscovery struct {
	mem    firmware.Memory
	config *LoaderConfig
	log    logrus.FieldLogger
}

// NewBootDiscovery creates a discovery service. A nil config selects the
// defaults and a nil logger selects the standard logrus logger.
func NewBootDiscovery(mem firmware.Memory, config *LoaderConfig, log logrus.FieldLogger) *BootDiscovery {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BootDiscovery{mem: mem, config: config, log: log}
}

// Discover locates and validates every table the kernel needs and
// assembles the BOOTBOOT page. The parsers stay pure; every fallback
// decision lives here.
func (d *BootDiscovery) Discover(inputs BootInputs) (*BootInfo, error) {
	info := &BootInfo{}

	env, err := d.discoverEnvironment(inputs.Initrd)
	if err != nil {
		return nil, errors.Wrap(err, "environment")
	}
	info.Environment = env

	info.Acpi, info.AcpiAddress, err = d.discoverACPI(inputs.ConfigTable)
	if err != nil {
		return nil, errors.Wrap(err, "ACPI")
	}

	info.Smbios, info.SmbiosAddress, err = d.discoverSMBIOS(inputs.ConfigTable)
	if err != nil {
		return nil, errors.Wrap(err, "SMBIOS")
	}

	kernelFile, err := initrd.ReadFile(inputs.Initrd, d.config.KernelFile)
	if err != nil {
		return nil, errors.Wrapf(err, "kernel %q", d.config.KernelFile)
	}
	info.Kernel, err = elf.Load(kernelFile)
	if err != nil {
		return nil, errors.Wrapf(err, "kernel %q", d.config.KernelFile)
	}
	d.log.WithFields(logrus.Fields{
		"entry":    info.Kernel.Entry,
		"memSize":  len(info.Kernel.Image),
		"fileSize": info.Kernel.Segment.FileSize,
	}).Debug("loaded kernel image")

	info.MemoryMap, err = memorymap.Normalize(inputs.MemoryDescriptors)
	if err != nil {
		return nil, errors.Wrap(err, "memory map")
	}
	d.log.WithField("entries", len(info.MemoryMap)).Debug("normalized memory map")

	header := &types.BootbootHeader{
		Protocol:  types.NewBootbootProtocol(types.ProtocolStatic, types.LoaderUEFI, false),
		NumCores:  1,
		Initrd:    inputs.InitrdRegion,
		Fb:        inputs.Framebuffer,
		AcpiPtr:   info.AcpiAddress,
		SmbiosPtr: info.SmbiosAddress,
		EfiPtr:    inputs.EfiSystemTable,
	}
	info.Page, err = bootboot.Build(header, info.MemoryMap)
	if err != nil {
		return nil, errors.Wrap(err, "assembling BOOTBOOT page")
	}

	return info, nil
}

// discoverEnvironment reads and parses the environment file from the
// initrd. A missing file is not an error; the defaults apply.
func (d *BootDiscovery) discoverEnvironment(archive []byte) (*environment.Environment, error) {
	raw, err := initrd.ReadFile(archive, d.config.EnvironmentFile)
	if goerrors.Is(err, types.ErrFileNotFound) {
		d.log.WithField("file", d.config.EnvironmentFile).Debug("no environment file, using defaults")
		return environment.Parse(nil)
	}
	if err != nil {
		return nil, err
	}
	return environment.Parse(raw)
}

// discoverACPI parses the preferred ACPI entry, falling back to a
// published ACPI 1.0 entry when the 2.0 one fails to parse and strict
// mode is off.
func (d *BootDiscovery) discoverACPI(table []firmware.ConfigTableEntry) (*types.SystemDescriptionTable, uint64, error) {
	entry, err := firmware.FindACPI(table)
	if err != nil {
		return nil, 0, err
	}

	sdt, err := acpi.ParseRootTableAt(d.mem, entry.Address)
	if err == nil {
		d.log.WithFields(logrus.Fields{
			"signature": sdt.Header.SignatureString(),
			"length":    sdt.Header.Length,
		}).Debug("validated ACPI root table")
		return sdt, entry.Address, nil
	}

	if d.config.StrictACPI || entry.Capability != firmware.ACPI20TableGUID {
		return nil, 0, err
	}
	fallback, found := findACPI10(table)
	if !found || fallback.Address == entry.Address {
		return nil, 0, err
	}

	d.log.WithError(err).Warn("ACPI 2.0 table failed to parse, retrying ACPI 1.0")
	sdt, err = acpi.ParseRootTableAt(d.mem, fallback.Address)
	if err != nil {
		return nil, 0, err
	}
	return sdt, fallback.Address, nil
}

// discoverSMBIOS validates the SMBIOS entry point. Absence yields a zero
// pointer unless the configuration requires the table; an invalid
// published table is always an error.
func (d *BootDiscovery) discoverSMBIOS(table []firmware.ConfigTableEntry) (*types.SmbiosEntryPoint, uint64, error) {
	entry, err := firmware.FindSMBIOS(table)
	if goerrors.Is(err, types.ErrNoTable) && !d.config.RequireSMBIOS {
		d.log.Debug("firmware publishes no SMBIOS table")
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	ep, err := smbios.ParseEntryPointAt(d.mem, entry.Address)
	if err != nil {
		return nil, 0, err
	}
	major, minor := ep.Version()
	d.log.WithFields(logrus.Fields{
		"version": logrus.Fields{"major": major, "minor": minor},
		"structs": ep.StructureCount,
	}).Debug("validated SMBIOS entry point")
	return ep, entry.Address, nil
}

func findACPI10(table []firmware.ConfigTableEntry) (firmware.ConfigTableEntry, bool) {
	for _, e := range table {
		if e.Capability == firmware.ACPI10TableGUID {
			return e, true
		}
	}
	return firmware.ConfigTableEntry{}, false
}
