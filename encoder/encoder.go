// Package encoder packages captured PCM into the container formats the
// upload endpoint accepts. Capture format is fixed: 16 kHz mono S16LE,
// fed in blocks of BlockSize samples.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder consumes sample blocks and yields the finished container.
// Bytes is only valid after Close.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}
