// Package environment parses the BOOTBOOT environment file: plain text
// key=value pairs that ride in the initrd and are handed to the kernel
// unmodified. Unlike the binary tables, the environment has safe defaults;
// only structural problems are errors.
package environment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// MaxLength is the longest environment accepted. The environment lives in
// a single page together with its NUL terminator.
const MaxLength = 4095

// Screen size used when the environment does not request one.
const (
	DefaultScreenWidth  = 1024
	DefaultScreenHeight = 768
)

// ErrInvalidScreen means a screen= directive was present but not of the
// WIDTHxHEIGHT form.
var ErrInvalidScreen = errors.New("invalid screen directive")

// Environment is the parsed boot environment.
type Environment struct {
	// The raw text, passed through to the kernel as-is.
	Raw string
	// All key=value pairs, comments stripped.
	Values map[string]string
	// The requested screen width and height in pixels.
	ScreenWidth  int
	ScreenHeight int
}

// Parse reads an environment text. Keys must start a line; `//` and `#`
// start line comments and `/* */` block comments are removed before
// scanning. A missing screen directive falls back to the default size.
func Parse(text []byte) (*Environment, error) {
	if len(text) > MaxLength {
		return nil, fmt.Errorf("environment of %d bytes: %w", len(text), types.ErrEnvironmentTooLarge)
	}

	env := &Environment{
		Raw:          string(text),
		Values:       make(map[string]string),
		ScreenWidth:  DefaultScreenWidth,
		ScreenHeight: DefaultScreenHeight,
	}

	for _, line := range strings.Split(stripBlockComments(env.Raw), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		// Keys must start the line; indented matches are ignored like
		// any other free text.
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		env.Values[key] = value
	}

	if screen, ok := env.Values["screen"]; ok {
		width, height, err := parseScreen(screen)
		if err != nil {
			return nil, err
		}
		env.ScreenWidth, env.ScreenHeight = width, height
	}

	return env, nil
}

// parseScreen reads a WIDTHxHEIGHT value.
func parseScreen(value string) (int, int, error) {
	w, h, found := strings.Cut(value, "x")
	if !found {
		return 0, 0, fmt.Errorf("screen %q: %w", value, ErrInvalidScreen)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("screen width %q: %w", w, ErrInvalidScreen)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("screen height %q: %w", h, ErrInvalidScreen)
	}
	return width, height, nil
}

// stripBlockComments removes /* */ comments, keeping the newlines inside
// them so line structure survives.
func stripBlockComments(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "/*")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:start])
		rest := s[start:]
		end := strings.Index(rest, "*/")
		if end < 0 {
			return b.String()
		}
		for _, r := range rest[:end+2] {
			if r == '\n' {
				b.WriteByte('\n')
			}
		}
		s = rest[end+2:]
	}
}
