package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint8
	}{
		{
			name: "empty slice sums to zero",
			data: nil,
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "sum wraps at 256",
			data: []byte{0xff, 0x02},
			want: 0x01,
		},
		{
			name: "only low byte of sum is kept",
			data: []byte{0x80, 0x80, 0x80, 0x80},
			want: 0x00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestChecksumValid(t *testing.T) {
	t.Run("zero sum is valid", func(t *testing.T) {
		data := []byte{0x10, 0x20, 0xd0}
		assert.True(t, ChecksumValid(data))
	})

	t.Run("flipping any byte invalidates the sum", func(t *testing.T) {
		data := []byte{0x10, 0x20, 0x30, 0xa0}
		assert.True(t, ChecksumValid(data))

		for i := range data {
			corrupted := make([]byte, len(data))
			copy(corrupted, data)
			corrupted[i] += 7
			assert.False(t, ChecksumValid(corrupted), "byte %d", i)
		}
	})

	t.Run("changing a byte by a multiple of 256 keeps it valid", func(t *testing.T) {
		data := []byte{0x00, 0x00}
		assert.True(t, ChecksumValid(data))
	})
}
