package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootimage/internal/firmware"
)

var (
	// Global output flags only
	verbose      bool
	quiet        bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "go-bootimage",
	Short: "BOOTBOOT boot image inspector and validator",
	Long: `go-bootimage is a read-only command-line tool for inspecting and
validating the firmware structures a BOOTBOOT loader consumes: ACPI
tables, SMBIOS entry points, ELF64 kernel images, UEFI memory maps
and assembled BOOTBOOT pages.

Works against physical memory dumps and image files, without any
firmware present. Ideal for debugging boot failures and verifying
boot media before deployment.

Commands:
  acpi        Validate the ACPI RSDP and root table chain in a dump
  smbios      Validate the SMBIOS entry point in a dump
  kernel      Parse, validate and load an ELF64 kernel image
  mmap        Normalize a UEFI memory map dump into BOOTBOOT entries
  page        Decode an assembled BOOTBOOT page
  discover    Run the full discovery sequence and assemble a page`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Only global output control flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json)")
}

// newLogger builds a logger honoring the global verbosity flags.
func newLogger() *logrus.Logger {
	log := logrus.New()
	switch {
	case quiet:
		log.SetLevel(logrus.ErrorLevel)
	case verbose:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// encodeJSON writes v as indented json, for scripting against the
// inspection commands.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAddress parses a physical address flag, accepting 0x-prefixed hex
// and plain decimal.
func parseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}

// loadSnapshot reads a memory dump file into a snapshot view starting at
// the given physical base address.
func loadSnapshot(path string, base uint64) (*firmware.SnapshotMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return firmware.NewSnapshotMemory(base, data), nil
}
