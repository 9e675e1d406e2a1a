package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootimage/internal/firmware"
	"github.com/deploymenttheory/go-bootimage/internal/services"
)

var (
	discoverBase          string
	discoverAcpiAddress   string
	discoverSmbiosAddress string
	discoverInitrdPath    string
	discoverMmapPath      string
	discoverStrictAcpi    bool
	discoverNeedSmbios    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover [dump-file]",
	Short: "Run the full discovery sequence and assemble a page",
	Long: `Run the complete boot discovery sequence against a memory dump,
exactly as the loader would at boot: validate the ACPI chain and the
SMBIOS entry point, load the kernel from the initrd, normalize the
memory map and assemble the BOOTBOOT page.

The configuration table is reconstructed from the address flags; pass
only the tables the firmware being debugged actually publishes.

Examples:
  # Full discovery with both tables published
  go-bootimage discover dump.bin --base 0xe0000 \
      --acpi 0xe2010 --smbios 0xf04d0 \
      --initrd initrd.tar --mmap memmap.bin

  # Firmware without SMBIOS
  go-bootimage discover dump.bin --base 0xe0000 --acpi 0xe2010 \
      --initrd initrd.tar --mmap memmap.bin`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDiscover(cmd, args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&discoverBase, "base", "0", "physical address of the first byte of the dump")
	discoverCmd.Flags().StringVar(&discoverAcpiAddress, "acpi", "", "published ACPI 2.0 table address")
	discoverCmd.Flags().StringVar(&discoverSmbiosAddress, "smbios", "", "published SMBIOS table address")
	discoverCmd.Flags().StringVar(&discoverInitrdPath, "initrd", "", "initrd ustar archive")
	discoverCmd.Flags().StringVar(&discoverMmapPath, "mmap", "", "UEFI memory descriptor dump")
	discoverCmd.Flags().BoolVar(&discoverStrictAcpi, "strict-acpi", false, "fail instead of falling back to ACPI 1.0")
	discoverCmd.Flags().BoolVar(&discoverNeedSmbios, "require-smbios", false, "treat a missing SMBIOS table as an error")
	discoverCmd.Flags().IntVar(&mmapDescriptorSize, "descriptor-size", 48, "descriptor stride the firmware reported")
	discoverCmd.MarkFlagRequired("acpi")
	discoverCmd.MarkFlagRequired("initrd")
	discoverCmd.MarkFlagRequired("mmap")
}

func runDiscover(cmd *cobra.Command, dumpPath string) error {
	base, err := parseAddress(discoverBase)
	if err != nil {
		return err
	}
	mem, err := loadSnapshot(dumpPath, base)
	if err != nil {
		return err
	}
	table, err := buildConfigTable()
	if err != nil {
		return err
	}

	initrd, err := os.ReadFile(discoverInitrdPath)
	if err != nil {
		return err
	}
	mmapDump, err := os.ReadFile(discoverMmapPath)
	if err != nil {
		return err
	}
	descriptors, err := decodeDescriptors(mmapDump, mmapDescriptorSize)
	if err != nil {
		return err
	}

	config, err := services.LoadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strict-acpi") {
		config.StrictACPI = discoverStrictAcpi
	}
	if cmd.Flags().Changed("require-smbios") {
		config.RequireSMBIOS = discoverNeedSmbios
	}

	svc := services.NewBootDiscovery(mem, config, newLogger())
	info, err := svc.Discover(services.BootInputs{
		ConfigTable:       table,
		MemoryDescriptors: descriptors,
		Initrd:            initrd,
	})
	if err != nil {
		return err
	}
	return writeDiscoverReport(os.Stdout, info)
}

// discoverReportJSON is the json rendering of a discovery run.
type discoverReportJSON struct {
	AcpiSignature string `json:"acpi_signature"`
	AcpiAddress   uint64 `json:"acpi_address"`
	SmbiosAddress uint64 `json:"smbios_address"`
	KernelEntry   uint64 `json:"kernel_entry"`
	Symbols       int    `json:"symbols"`
	ScreenWidth   int    `json:"screen_width"`
	ScreenHeight  int    `json:"screen_height"`
	MapEntries    int    `json:"map_entries"`
	PageBytes     int    `json:"page_bytes"`
}

func writeDiscoverReport(w io.Writer, info *services.BootInfo) error {
	if outputFormat == "json" {
		return encodeJSON(w, discoverReportJSON{
			AcpiSignature: info.Acpi.Header.SignatureString(),
			AcpiAddress:   info.AcpiAddress,
			SmbiosAddress: info.SmbiosAddress,
			KernelEntry:   info.Kernel.Entry,
			Symbols:       countSymbols(info),
			ScreenWidth:   info.Environment.ScreenWidth,
			ScreenHeight:  info.Environment.ScreenHeight,
			MapEntries:    len(info.MemoryMap),
			PageBytes:     len(info.Page),
		})
	}

	fmt.Fprintln(w, "✅ Discovery complete")
	fmt.Fprintf(w, "    ACPI %s at 0x%x\n", info.Acpi.Header.SignatureString(), info.AcpiAddress)
	if info.Smbios != nil {
		major, minor := info.Smbios.Version()
		fmt.Fprintf(w, "    SMBIOS %d.%d at 0x%x\n", major, minor, info.SmbiosAddress)
	} else {
		fmt.Fprintln(w, "    SMBIOS: not published")
	}
	fmt.Fprintf(w, "    Kernel entry: 0x%x (%d symbols resolved)\n",
		info.Kernel.Entry, countSymbols(info))
	fmt.Fprintf(w, "    Screen: %dx%d\n", info.Environment.ScreenWidth, info.Environment.ScreenHeight)
	fmt.Fprintf(w, "    Memory map: %d entries\n", len(info.MemoryMap))
	fmt.Fprintf(w, "    BOOTBOOT page: %d bytes\n", len(info.Page))
	return nil
}

// buildConfigTable reconstructs a firmware configuration table from the
// address flags.
func buildConfigTable() ([]firmware.ConfigTableEntry, error) {
	var table []firmware.ConfigTableEntry

	acpiAddr, err := parseAddress(discoverAcpiAddress)
	if err != nil {
		return nil, err
	}
	table = append(table, firmware.ConfigTableEntry{
		Capability: firmware.ACPI20TableGUID,
		Address:    acpiAddr,
	})

	if discoverSmbiosAddress != "" {
		smbiosAddr, err := parseAddress(discoverSmbiosAddress)
		if err != nil {
			return nil, err
		}
		table = append(table, firmware.ConfigTableEntry{
			Capability: firmware.SMBIOSTableGUID,
			Address:    smbiosAddr,
		})
	}
	return table, nil
}

func countSymbols(info *services.BootInfo) int {
	n := 0
	for _, sym := range []bool{
		info.Kernel.Symbols.Bootboot != nil,
		info.Kernel.Symbols.Environment != nil,
		info.Kernel.Symbols.Framebuffer != nil,
		info.Kernel.Symbols.InitStack != nil,
	} {
		if sym {
			n++
		}
	}
	return n
}
