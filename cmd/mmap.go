package cmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootimage/internal/parsers/memorymap"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

var mmapDescriptorSize int

var mmapCmd = &cobra.Command{
	Use:   "mmap [descriptor-dump]",
	Short: "Normalize a UEFI memory map dump into BOOTBOOT entries",
	Long: `Normalize a dump of UEFI memory descriptors into the packed,
sorted and coalesced BOOTBOOT memory map.

The dump is the raw descriptor array as returned by the firmware's
GetMemoryMap, with the descriptor size the firmware reported (firmware
routinely pads descriptors past their structure size).

Examples:
  # Normalize a dump with the common 48-byte descriptor stride
  go-bootimage mmap memmap.bin

  # A firmware reporting unpadded descriptors
  go-bootimage mmap memmap.bin --descriptor-size 40

  # Machine-readable output
  go-bootimage mmap memmap.bin -o json`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMmap(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mmapCmd)

	mmapCmd.Flags().IntVar(&mmapDescriptorSize, "descriptor-size", 48, "descriptor stride the firmware reported")
}

// mmapEntryJSON is the json rendering of one normalized entry.
type mmapEntryJSON struct {
	Address uint64 `json:"address"`
	Size    uint64 `json:"size"`
	Type    string `json:"type"`
}

func runMmap(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	descriptors, err := decodeDescriptors(data, mmapDescriptorSize)
	if err != nil {
		return err
	}

	entries, err := memorymap.Normalize(descriptors)
	if err != nil {
		return err
	}
	return writeMmapReport(os.Stdout, len(descriptors), entries)
}

func writeMmapReport(w io.Writer, descriptors int, entries []types.MMapEntry) error {
	if outputFormat == "json" {
		return encodeJSON(w, mmapEntriesJSON(entries))
	}

	fmt.Fprintf(w, "📋 %d descriptors normalized to %d entries\n", descriptors, len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "    0x%016x  %12d bytes  %s\n", e.Ptr, e.Size(), e.EntryType())
	}
	return nil
}

func mmapEntriesJSON(entries []types.MMapEntry) []mmapEntryJSON {
	out := make([]mmapEntryJSON, len(entries))
	for i, e := range entries {
		out[i] = mmapEntryJSON{
			Address: e.Ptr,
			Size:    e.Size(),
			Type:    e.EntryType().String(),
		}
	}
	return out
}

// decodeDescriptors unpacks the raw GetMemoryMap buffer. The fields the
// loader consumes sit at fixed offsets inside each stride.
func decodeDescriptors(data []byte, stride int) ([]types.MemoryDescriptor, error) {
	if stride < 32 {
		return nil, fmt.Errorf("descriptor stride %d below the structure size", stride)
	}
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("dump of %d bytes is not a multiple of the %d byte stride",
			len(data), stride)
	}

	descriptors := make([]types.MemoryDescriptor, len(data)/stride)
	for i := range descriptors {
		d := data[i*stride:]
		descriptors[i] = types.MemoryDescriptor{
			Type:          binary.LittleEndian.Uint32(d[0:4]),
			PhysicalStart: binary.LittleEndian.Uint64(d[8:16]),
			PageCount:     binary.LittleEndian.Uint64(d[24:32]),
		}
	}
	return descriptors, nil
}
