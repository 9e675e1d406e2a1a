package initrd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

// createArchive builds a minimal ustar archive from name/content pairs,
// each entry padded to whole 512-byte blocks, terminated by two zero
// blocks.
func createArchive(files map[string][]byte, order []string) []byte {
	var out []byte
	for _, name := range order {
		content := files[name]
		header := make([]byte, blockSize)
		copy(header[nameOffset:], name)
		copy(header[sizeOffset:], fmt.Sprintf("%011o\x00", len(content)))
		copy(header[magicOffset:], "ustar\x0000")
		out = append(out, header...)

		padded := (len(content) + blockSize - 1) / blockSize * blockSize
		block := make([]byte, padded)
		copy(block, content)
		out = append(out, block...)
	}
	return append(out, make([]byte, 2*blockSize)...)
}

func TestReadFile(t *testing.T) {
	kernel := []byte("fake kernel image contents")
	config := []byte("screen=800x600\n")
	archive := createArchive(map[string][]byte{
		"sys/core":   kernel,
		"sys/config": config,
	}, []string{"sys/core", "sys/config"})

	t.Run("finds the first entry", func(t *testing.T) {
		got, err := ReadFile(archive, "sys/core")
		require.NoError(t, err)
		assert.Equal(t, kernel, got)
	})

	t.Run("finds an entry after a padded one", func(t *testing.T) {
		got, err := ReadFile(archive, "sys/config")
		require.NoError(t, err)
		assert.Equal(t, config, got)
	})

	t.Run("missing file fails with ErrFileNotFound", func(t *testing.T) {
		_, err := ReadFile(archive, "sys/missing")
		assert.ErrorIs(t, err, types.ErrFileNotFound)
	})

	t.Run("empty archive fails with ErrFileNotFound", func(t *testing.T) {
		_, err := ReadFile(nil, "sys/core")
		assert.ErrorIs(t, err, types.ErrFileNotFound)
	})

	t.Run("bad magic fails with ErrInvalidSignature", func(t *testing.T) {
		corrupted := createArchive(map[string][]byte{"a": []byte("x")}, []string{"a"})
		copy(corrupted[magicOffset:], "trash")

		_, err := ReadFile(corrupted, "a")
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("truncated entry fails with ErrInvalidSize", func(t *testing.T) {
		truncated := createArchive(map[string][]byte{"a": make([]byte, 600)}, []string{"a"})
		truncated = truncated[:blockSize+100]

		_, err := ReadFile(truncated, "a")
		assert.ErrorIs(t, err, types.ErrInvalidSize)
	})

	t.Run("zero-length file returns an empty slice", func(t *testing.T) {
		archive := createArchive(map[string][]byte{"empty": nil}, []string{"empty"})
		got, err := ReadFile(archive, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
