package archive

const (
	// DefaultStoreEntropyThreshold is the bits-per-byte entropy at which
	// a file is considered incompressible and stored uncompressed.
	DefaultStoreEntropyThreshold = 7.8

	// DefaultIOBufferSize is the copy buffer size used for streaming
	// files in and out of archives.
	DefaultIOBufferSize = 256 * 1024
)

// Options configures an Engine. A zero CompressionLevel pointer means
// the compressor's default level. Options are fixed for the lifetime of
// an Engine instance.
type Options struct {
	// CompressionLevel overrides the deflate level when set.
	CompressionLevel *int

	// AutoStore enables the entropy heuristic: files classified as
	// incompressible are written with the store method instead of
	// being deflated.
	AutoStore bool

	// StoreEntropyThreshold is the bits-per-byte cutoff for AutoStore.
	StoreEntropyThreshold float64

	// IOBufferSize bounds the copy buffer; files are streamed, never
	// fully buffered in memory.
	IOBufferSize int
}

// DefaultOptions returns the options used when none are provided.
func DefaultOptions() Options {
	return Options{
		CompressionLevel:      nil,
		AutoStore:             true,
		StoreEntropyThreshold: DefaultStoreEntropyThreshold,
		IOBufferSize:          DefaultIOBufferSize,
	}
}
