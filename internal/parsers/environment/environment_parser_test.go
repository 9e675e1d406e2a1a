package environment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootimage/internal/types"
)

func TestParse(t *testing.T) {
	t.Run("parses key=value pairs", func(t *testing.T) {
		env, err := Parse([]byte("kernel=sys/core\nscreen=800x600\n"))
		require.NoError(t, err)

		assert.Equal(t, "sys/core", env.Values["kernel"])
		assert.Equal(t, 800, env.ScreenWidth)
		assert.Equal(t, 600, env.ScreenHeight)
	})

	t.Run("missing screen falls back to the default", func(t *testing.T) {
		env, err := Parse([]byte("kernel=sys/core\n"))
		require.NoError(t, err)

		assert.Equal(t, DefaultScreenWidth, env.ScreenWidth)
		assert.Equal(t, DefaultScreenHeight, env.ScreenHeight)
	})

	t.Run("empty input is a valid default environment", func(t *testing.T) {
		env, err := Parse(nil)
		require.NoError(t, err)

		assert.Empty(t, env.Values)
		assert.Equal(t, DefaultScreenWidth, env.ScreenWidth)
	})

	t.Run("line comments are stripped", func(t *testing.T) {
		env, err := Parse([]byte("// loader config\n#screen=640x480\nscreen=800x600 # wide\n"))
		require.NoError(t, err)

		assert.Equal(t, 800, env.ScreenWidth)
		assert.Equal(t, 600, env.ScreenHeight)
	})

	t.Run("block comments are stripped", func(t *testing.T) {
		env, err := Parse([]byte("/* screen=640x480\nkernel=other */\nkernel=sys/core\n"))
		require.NoError(t, err)

		assert.Equal(t, "sys/core", env.Values["kernel"])
		assert.NotContains(t, env.Values, "screen")
	})

	t.Run("indented pairs are ignored", func(t *testing.T) {
		env, err := Parse([]byte("  screen=640x480\n"))
		require.NoError(t, err)

		assert.Equal(t, DefaultScreenWidth, env.ScreenWidth)
	})

	t.Run("raw text is preserved for the kernel", func(t *testing.T) {
		text := "kernel=sys/core // comment\n"
		env, err := Parse([]byte(text))
		require.NoError(t, err)

		assert.Equal(t, text, env.Raw)
	})

	t.Run("oversized input fails with ErrEnvironmentTooLarge", func(t *testing.T) {
		_, err := Parse([]byte(strings.Repeat("a", MaxLength+1)))
		assert.ErrorIs(t, err, types.ErrEnvironmentTooLarge)
	})

	t.Run("input at the limit is accepted", func(t *testing.T) {
		_, err := Parse([]byte(strings.Repeat("a", MaxLength)))
		assert.NoError(t, err)
	})

	screenFailures := []struct {
		name  string
		value string
	}{
		{"no separator", "screen=800600"},
		{"non-numeric width", "screen=ax600"},
		{"non-numeric height", "screen=800xb"},
		{"empty value", "screen="},
	}

	for _, tt := range screenFailures {
		t.Run(tt.name+" fails with ErrInvalidScreen", func(t *testing.T) {
			_, err := Parse([]byte(tt.value + "\n"))
			assert.ErrorIs(t, err, ErrInvalidScreen)
		})
	}
}
