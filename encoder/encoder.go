package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns 16-bit mono PCM blocks into a byte stream that can be
// drained incrementally; the concatenation of all drained bytes is one
// valid file of MediaType.
type Encoder interface {
	EncodeBlock(block []int16) error
	Drain() []byte
	Close() error
	TotalFrames() uint64
	MediaType() string
}
