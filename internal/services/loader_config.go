// Package services orchestrates the individual parsers into a full boot
// discovery run and owns loader policy: retry/fallback decisions the
// parsers themselves deliberately do not make.
package services

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoaderConfig holds the tunable loader policy.
type LoaderConfig struct {
	// KernelFile is the path of the kernel ELF inside the initrd.
	KernelFile string `mapstructure:"kernel_file"`
	// EnvironmentFile is the path of the environment text inside the
	// initrd.
	EnvironmentFile string `mapstructure:"environment_file"`
	// StrictACPI disables the fallback to an ACPI 1.0 entry after an
	// ACPI 2.0 parse failure.
	StrictACPI bool `mapstructure:"strict_acpi"`
	// RequireSMBIOS turns a missing SMBIOS table into an error instead
	// of a zero pointer.
	RequireSMBIOS bool `mapstructure:"require_smbios"`
}

// LoadConfig loads the loader configuration using viper: defaults first,
// then an optional bootimage-config file, then BOOTIMAGE_* environment
// variables.
func LoadConfig() (*LoaderConfig, error) {
	v := viper.New()
	v.SetConfigName("bootimage-config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.bootimage")
	v.AddConfigPath("/etc/bootimage")

	v.SetDefault("kernel_file", "sys/core")
	v.SetDefault("environment_file", "sys/config")
	v.SetDefault("strict_acpi", false)
	v.SetDefault("require_smbios", false)

	v.SetEnvPrefix("BOOTIMAGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file means defaults.
	}

	var config LoaderConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &config, nil
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are in play.
func DefaultConfig() *LoaderConfig {
	return &LoaderConfig{
		KernelFile:      "sys/core",
		EnvironmentFile: "sys/config",
	}
}
