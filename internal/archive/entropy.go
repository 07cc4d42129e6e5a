package archive

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/afero"
)

// entropySampleSize caps how much of a file the classifier reads. One
// bounded read trades accuracy for not compressing the whole file twice.
const entropySampleSize = 256 * 1024

// Entropy computes the Shannon entropy, in bits per byte, of a byte
// slice. An empty slice has zero entropy.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	total := float64(len(data))
	entropy := 0.0
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// incompressible samples the first entropySampleSize bytes of the file
// and reports whether its estimated entropy meets the threshold.
// Already-dense data (media, ciphertext, prior archives) lands above
// typical thresholds and is not worth deflating. A zero-length read
// classifies as compressible.
func incompressible(fs afero.Fs, filePath string, threshold float64) (bool, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to open %s for entropy sampling: %w", filePath, wrap(ErrIO, err))
	}
	defer f.Close()

	buf := make([]byte, entropySampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, fmt.Errorf("failed to sample %s: %w", filePath, wrap(ErrIO, err))
	}
	if n == 0 {
		return false, nil
	}

	return Entropy(buf[:n]) >= threshold, nil
}
