package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootimage/internal/parsers/elf"
	"github.com/deploymenttheory/go-bootimage/internal/types"
)

var kernelSymbols bool

var kernelCmd = &cobra.Command{
	Use:   "kernel [elf-file]",
	Short: "Parse, validate and load an ELF64 kernel image",
	Long: `Validate an ELF64 kernel against the requirements of the BOOTBOOT
protocol: a static x86_64 executable with a PT_LOAD segment, loaded the
way the boot loader would load it.

Examples:
  # Validate a kernel and report its load segment
  go-bootimage kernel sys/core

  # Also resolve the protocol symbols
  go-bootimage kernel sys/core --symbols`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runKernel(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(kernelCmd)

	kernelCmd.Flags().BoolVar(&kernelSymbols, "symbols", false, "resolve the BOOTBOOT protocol symbols")
}

func runKernel(path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	kernel, err := elf.Load(file)
	if err != nil {
		return err
	}
	return writeKernelReport(os.Stdout, path, kernel)
}

// kernelReportJSON is the json rendering of a loaded kernel.
type kernelReportJSON struct {
	Entry          uint64            `json:"entry"`
	VirtualAddress uint64            `json:"virtual_address"`
	FileSize       uint64            `json:"file_size"`
	MemSize        uint64            `json:"mem_size"`
	Symbols        map[string]uint64 `json:"symbols,omitempty"`
}

func writeKernelReport(w io.Writer, path string, kernel *elf.LoadedKernel) error {
	if outputFormat == "json" {
		report := kernelReportJSON{
			Entry:          kernel.Entry,
			VirtualAddress: kernel.Segment.VirtualAddress,
			FileSize:       kernel.Segment.FileSize,
			MemSize:        kernel.Segment.MemSize,
		}
		if kernelSymbols {
			report.Symbols = map[string]uint64{}
			addSymbol(report.Symbols, elf.SymbolBootboot, kernel.Symbols.Bootboot)
			addSymbol(report.Symbols, elf.SymbolEnvironment, kernel.Symbols.Environment)
			addSymbol(report.Symbols, elf.SymbolFramebuffer, kernel.Symbols.Framebuffer)
			addSymbol(report.Symbols, elf.SymbolInitStack, kernel.Symbols.InitStack)
		}
		return encodeJSON(w, report)
	}

	fmt.Fprintf(w, "✅ Valid ELF64 kernel: %s\n", path)
	fmt.Fprintf(w, "    Entry point: 0x%x\n", kernel.Entry)
	fmt.Fprintf(w, "    Load segment: vaddr 0x%x, %d bytes in file, %d in memory\n",
		kernel.Segment.VirtualAddress, kernel.Segment.FileSize, kernel.Segment.MemSize)
	bss := kernel.Segment.MemSize - kernel.Segment.FileSize
	if bss > 0 {
		fmt.Fprintf(w, "    BSS: %d zero-filled bytes\n", bss)
	}

	if kernelSymbols {
		writeSymbol(w, elf.SymbolBootboot, kernel.Symbols.Bootboot)
		writeSymbol(w, elf.SymbolEnvironment, kernel.Symbols.Environment)
		writeSymbol(w, elf.SymbolFramebuffer, kernel.Symbols.Framebuffer)
		writeSymbol(w, elf.SymbolInitStack, kernel.Symbols.InitStack)
	}
	return nil
}

func addSymbol(symbols map[string]uint64, name string, sym *types.ElfSymbol64) {
	if sym != nil {
		symbols[name] = sym.Value
	}
}

func writeSymbol(w io.Writer, name string, sym *types.ElfSymbol64) {
	if sym == nil {
		fmt.Fprintf(w, "    └── %-12s (not exported)\n", name)
		return
	}
	fmt.Fprintf(w, "    └── %-12s 0x%x\n", name, sym.Value)
}
