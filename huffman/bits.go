package huffman

import (
	"github.com/icza/bitio"
)

// BitReader is the bit source the decoder consumes. *bitio.Reader
// satisfies it.
type BitReader interface {
	ReadBits(n uint8) (uint64, error)
	ReadBool() (bool, error)
}

// BitWriter is the bit sink the encoder produces into. *bitio.Writer
// satisfies it.
type BitWriter interface {
	WriteBits(r uint64, n uint8) error
	WriteBool(b bool) error
}

var (
	_ BitReader = (*bitio.Reader)(nil)
	_ BitWriter = (*bitio.Writer)(nil)
)

func readUint32(r BitReader, what string) (uint32, error) {
	v, err := r.ReadBits(BITS_PER_INT)
	if err != nil {
		return 0, readError(err, what)
	}
	return uint32(v), nil
}

func writeUint32(w BitWriter, v uint32, what string) error {
	if err := w.WriteBits(uint64(v), BITS_PER_INT); err != nil {
		return writeError(err, what)
	}
	return nil
}
