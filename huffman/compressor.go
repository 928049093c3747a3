package huffman

import (
	"bufio"
	"bytes"
	"io"
	"math"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// Stats is the bit accounting of one preprocessed input.
type Stats struct {
	Format         HeaderFormat `json:"-"`
	Symbols        int64        `json:"symbols"`
	OriginalBits   int64        `json:"original_bits"`
	CompressedBits int64        `json:"compressed_bits"`
}

// Saved is negative when compression would grow the input.
func (s Stats) Saved() int64 {
	return s.OriginalBits - s.CompressedBits
}

// Grows reports whether the compressed stream would be larger than the input.
func (s Stats) Grows() bool {
	return s.CompressedBits > s.OriginalBits
}

// Compressor runs the two-phase protocol: Preprocess counts an input and
// prices it, Compress then writes the same input. A Compressor holds the
// state of one input at a time and must not be shared between goroutines.
type Compressor struct {
	freqs    *FrequencyTable
	tree     *Tree
	codes    *CodeTable
	stats    Stats
	prepared bool
}

func NewCompressor() *Compressor {
	return &Compressor{}
}

func (c *Compressor) reset(format HeaderFormat) {
	c.freqs = nil
	c.tree = nil
	c.codes = nil
	c.stats = Stats{Format: format}
	c.prepared = false
}

// Preprocess reads r to the end, builds the code tree for it and returns the
// number of bits compression with format would save.
func (c *Compressor) Preprocess(r io.Reader, format HeaderFormat) (int64, error) {
	if !format.Valid() {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "unsupported header format %s", format)
	}
	c.reset(format)

	freqs, n, err := CountFrequencies(r)
	if err != nil {
		return 0, err
	}
	if format == STORE_COUNTS {
		for sym := 0; sym < ALPH_SIZE; sym++ {
			if freqs[sym] > math.MaxUint32 {
				return 0, errors.Wrapf(ErrFrequencyOverflow, "symbol %s occurs %d times", Symbol(sym), freqs[sym])
			}
		}
	}

	tree, err := BuildTree(freqs)
	if err != nil {
		return 0, err
	}
	codes := tree.Codes()

	c.freqs = freqs
	c.tree = tree
	c.codes = codes
	c.stats.Symbols = n
	c.stats.OriginalBits = n * BITS_PER_WORD
	c.stats.CompressedBits = 2*BITS_PER_INT + headerBits(format, tree) + codes.Bits(freqs)
	c.prepared = true

	return c.stats.Saved(), nil
}

// Compress writes the compressed form of r, which must hold the bytes last
// passed to Preprocess. Unless force is set nothing is written when
// compression would grow the input; the result is then 0. Otherwise it
// returns the number of bits written, not counting the padding of the last
// byte. Every call consumes the preceding Preprocess.
func (c *Compressor) Compress(r io.Reader, w io.Writer, force bool) (int64, error) {
	if !c.prepared {
		return 0, ErrPrecondition
	}
	c.prepared = false

	if !force && c.stats.Grows() {
		return 0, nil
	}

	buf := bufio.NewWriter(w)
	bw := bitio.NewWriter(buf)
	if err := writeHeader(bw, c.stats.Format, c.tree, c.freqs); err != nil {
		return 0, err
	}
	n, err := encodePayload(r, bw, c.codes)
	if err != nil {
		return 0, err
	}
	if n != c.stats.Symbols {
		return 0, errors.Wrapf(ErrPrecondition, "input has %d bytes, preprocess saw %d", n, c.stats.Symbols)
	}
	if err := bw.Close(); err != nil {
		return 0, writeError(err, "output")
	}
	if err := buf.Flush(); err != nil {
		return 0, writeError(err, "output")
	}

	return c.stats.CompressedBits, nil
}

// Stats returns the accounting of the last successful Preprocess.
func (c *Compressor) Stats() Stats {
	return c.stats
}

// Tree returns the code tree of the last successful Preprocess, or nil.
func (c *Compressor) Tree() *Tree {
	return c.tree
}

func (c *Compressor) Codes() *CodeTable {
	return c.codes
}

func (c *Compressor) Frequencies() *FrequencyTable {
	return c.freqs
}

// Decompress reads a compressed stream from r and writes the original bytes
// to w. It returns the number of bits written.
func Decompress(r io.Reader, w io.Writer) (int64, error) {
	br := bitio.NewReader(r)
	tree, _, err := readHeader(br)
	if err != nil {
		return 0, err
	}

	buf := bufio.NewWriter(w)
	n, err := decodePayload(br, tree, buf)
	if err != nil {
		return 0, err
	}
	if err := buf.Flush(); err != nil {
		return 0, errors.Wrap(err, "cannot write output")
	}
	return n * BITS_PER_WORD, nil
}

// CompressBytes runs both phases over data. out is nil when compression
// would grow data and force is not set.
func CompressBytes(data []byte, format HeaderFormat, force bool) (out []byte, stats Stats, err error) {
	c := NewCompressor()
	if _, err = c.Preprocess(bytes.NewReader(data), format); err != nil {
		return nil, stats, err
	}
	stats = c.Stats()

	b := &bytes.Buffer{}
	written, err := c.Compress(bytes.NewReader(data), b, force)
	if err != nil {
		return nil, stats, err
	}
	if written == 0 {
		return nil, stats, nil
	}
	return b.Bytes(), stats, nil
}

func DecompressBytes(data []byte) ([]byte, error) {
	b := &bytes.Buffer{}
	if _, err := Decompress(bytes.NewReader(data), b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
