package archive

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntropy(t *testing.T) {
	t.Run("empty input has zero entropy", func(t *testing.T) {
		assert.Zero(t, Entropy(nil))
	})

	t.Run("single repeated byte has zero entropy", func(t *testing.T) {
		assert.Zero(t, Entropy(bytes.Repeat([]byte{'a'}, 4096)))
	})

	t.Run("uniform byte distribution has maximal entropy", func(t *testing.T) {
		data := make([]byte, 256*256)
		for i := range data {
			data[i] = byte(i)
		}
		assert.InDelta(t, 8.0, Entropy(data), 0.001)
	})

	t.Run("two symbols give one bit per byte", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x00, 0xff}, 2048)
		assert.InDelta(t, 1.0, Entropy(data), 0.001)
	})
}

func TestIncompressible(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("repeated byte file is compressible", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "low.bin", bytes.Repeat([]byte{'x'}, 100_000), 0o644))

		dense, err := incompressible(fs, "low.bin", DefaultStoreEntropyThreshold)
		require.NoError(t, err)
		assert.False(t, dense)
	})

	t.Run("uniform byte file is incompressible", func(t *testing.T) {
		data := make([]byte, entropySampleSize)
		for i := range data {
			data[i] = byte(i)
		}
		require.NoError(t, afero.WriteFile(fs, "high.bin", data, 0o644))

		dense, err := incompressible(fs, "high.bin", DefaultStoreEntropyThreshold)
		require.NoError(t, err)
		assert.True(t, dense)
	})

	t.Run("empty file is compressible", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "empty.bin", nil, 0o644))

		dense, err := incompressible(fs, "empty.bin", DefaultStoreEntropyThreshold)
		require.NoError(t, err)
		assert.False(t, dense)
	})

	t.Run("missing file reports io error", func(t *testing.T) {
		_, err := incompressible(fs, "missing.bin", DefaultStoreEntropyThreshold)
		assert.ErrorIs(t, err, ErrIO)
	})
}
