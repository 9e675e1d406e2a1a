// Package initrd looks files up inside an in-memory ustar archive, the
// format the initrd ramdisk is delivered in.
package initrd

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

const (
	blockSize   = 512
	nameOffset  = 0
	nameSize    = 100
	sizeOffset  = 124
	sizeSize    = 12
	magicOffset = 257
	ustarMagic  = "ustar"
)

// ReadFile finds the file with the given name in a ustar archive and
// returns a view of its contents. The archive buffer is only read; the
// returned slice aliases it. A name that is not present, or an archive
// with no further valid headers, yields ErrFileNotFound.
func ReadFile(archive []byte, name string) ([]byte, error) {
	rest := archive
	for len(rest) > blockSize {
		header := rest[:blockSize]

		// Two zero blocks mark the end of the archive; a single zero
		// name byte is close enough to stop on.
		if header[nameOffset] == 0 {
			break
		}
		if string(header[magicOffset:magicOffset+len(ustarMagic)]) != ustarMagic {
			return nil, fmt.Errorf("bad ustar magic at entry: %w", types.ErrInvalidSignature)
		}

		entryName := headerString(header[nameOffset : nameOffset+nameSize])
		entrySize, err := parseOctal(header[sizeOffset : sizeOffset+sizeSize])
		if err != nil {
			return nil, fmt.Errorf("entry %q size field: %w", entryName, err)
		}

		if entryName == name {
			if blockSize+entrySize > uint64(len(rest)) {
				return nil, fmt.Errorf("entry %q of %d bytes truncated: %w",
					entryName, entrySize, types.ErrInvalidSize)
			}
			return rest[blockSize : blockSize+entrySize], nil
		}

		// Contents are padded out to whole blocks.
		advance := blockSize + (entrySize+blockSize-1)/blockSize*blockSize
		if advance > uint64(len(rest)) {
			break
		}
		rest = rest[advance:]
	}
	return nil, fmt.Errorf("%q: %w", name, types.ErrFileNotFound)
}

// headerString trims the NUL padding from a fixed-width header field.
func headerString(field []byte) string {
	if end := bytes.IndexByte(field, 0); end >= 0 {
		field = field[:end]
	}
	return string(field)
}

// parseOctal reads a NUL- or space-terminated octal size field.
func parseOctal(field []byte) (uint64, error) {
	s := strings.Trim(headerString(field), " ")
	if s == "" {
		return 0, nil
	}
	size, err := strconv.ParseUint(s, 8, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not octal: %w", s, types.ErrInvalidSize)
	}
	return size, nil
}
