package huffman

import (
	"math"

	"github.com/pkg/errors"
)

// treeBits is the length of the STORE_TREE encoding of t: one flag bit per
// node and a symbol field per leaf.
func treeBits(t *Tree) int64 {
	return int64(t.NumLeaves)*BITS_PER_LEAF + int64(t.TotalNodes)
}

// headerBits is the cost of the header in the given format, without the
// magic number and the format tag.
func headerBits(format HeaderFormat, t *Tree) int64 {
	if format == STORE_COUNTS {
		return ALPH_SIZE * BITS_PER_INT
	}
	return BITS_PER_INT + treeBits(t)
}

func writeHeader(w BitWriter, format HeaderFormat, t *Tree, freqs *FrequencyTable) error {
	if err := writeUint32(w, MAGIC_NUMBER, "magic number"); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(format), "header format"); err != nil {
		return err
	}

	switch format {
	case STORE_COUNTS:
		return writeCounts(w, freqs)
	case STORE_TREE:
		return writeTree(w, t)
	}
	return errors.Wrapf(ErrInvalidConfiguration, "unsupported header format %s", format)
}

func writeCounts(w BitWriter, freqs *FrequencyTable) error {
	for sym := 0; sym < ALPH_SIZE; sym++ {
		if freqs[sym] > math.MaxUint32 {
			return errors.Wrapf(ErrFrequencyOverflow, "symbol %s occurs %d times", Symbol(sym), freqs[sym])
		}
		if err := writeUint32(w, uint32(freqs[sym]), "symbol count"); err != nil {
			return err
		}
	}
	return nil
}

func writeTree(w BitWriter, t *Tree) error {
	if err := writeUint32(w, uint32(treeBits(t)), "tree length"); err != nil {
		return err
	}

	return t.walkPreOrder(func(n *Node) error {
		if !n.IsLeaf() {
			if err := w.WriteBool(false); err != nil {
				return writeError(err, "tree node")
			}
			return nil
		}
		if err := w.WriteBool(true); err != nil {
			return writeError(err, "tree leaf")
		}
		if err := w.WriteBits(uint64(n.Symbol), BITS_PER_LEAF); err != nil {
			return writeError(err, "tree leaf")
		}
		return nil
	})
}

// readHeader checks the magic number and rebuilds the code tree from
// whichever header format follows it.
func readHeader(r BitReader) (*Tree, HeaderFormat, error) {
	magic, err := readUint32(r, "magic number")
	if err != nil {
		return nil, 0, err
	}
	if magic != MAGIC_NUMBER {
		return nil, 0, errors.Wrapf(ErrMagicNumberMismatch, "got 0x%08x", magic)
	}

	tag, err := readUint32(r, "header format")
	if err != nil {
		return nil, 0, err
	}

	format := HeaderFormat(tag)
	var t *Tree
	switch format {
	case STORE_COUNTS:
		t, err = readCounts(r)
	case STORE_TREE:
		t, err = readTree(r)
	default:
		return nil, 0, errors.Wrapf(ErrInvalidHeaderFormat, "got 0x%08x", tag)
	}
	if err != nil {
		return nil, format, err
	}
	return t, format, nil
}

func readCounts(r BitReader) (*Tree, error) {
	freqs := &FrequencyTable{}
	for sym := 0; sym < ALPH_SIZE; sym++ {
		c, err := readUint32(r, "symbol count")
		if err != nil {
			return nil, err
		}
		freqs[sym] = uint64(c)
	}
	freqs[PSEUDO_EOF] = 1
	return BuildTree(freqs)
}

// readTree parses a pre-order tree encoding without recursion. open holds
// the internal nodes still waiting for their right child.
func readTree(r BitReader) (*Tree, error) {
	declared, err := readUint32(r, "tree length")
	if err != nil {
		return nil, err
	}

	var seen [NUM_SYMBOLS]bool
	var open []*Node
	var consumed int64
	t := &Tree{}

	for t.Root == nil || len(open) > 0 {
		if consumed >= int64(declared) {
			return nil, errors.Wrapf(ErrMalformedTree, "tree exceeds declared length of %d bits", declared)
		}

		is_leaf, err := r.ReadBool()
		if err != nil {
			return nil, readError(err, "tree node")
		}
		consumed++

		n := &Node{Symbol: -1}
		if is_leaf {
			v, err := r.ReadBits(BITS_PER_LEAF)
			if err != nil {
				return nil, readError(err, "tree leaf")
			}
			consumed += BITS_PER_LEAF
			if v >= NUM_SYMBOLS {
				return nil, errors.Wrapf(ErrMalformedTree, "leaf symbol %d out of range", v)
			}
			if seen[v] {
				return nil, errors.Wrapf(ErrMalformedTree, "duplicate leaf %s", Symbol(v))
			}
			seen[v] = true
			n.Symbol = Symbol(v)
			t.NumLeaves++
		}
		t.TotalNodes++

		if t.Root == nil {
			t.Root = n
		} else {
			parent := open[len(open)-1]
			if parent.Left == nil {
				parent.Left = n
			} else {
				parent.Right = n
				open = open[:len(open)-1]
			}
		}
		if !is_leaf {
			open = append(open, n)
		}
	}

	if consumed != int64(declared) {
		return nil, errors.Wrapf(ErrMalformedTree, "tree uses %d bits, header declares %d", consumed, declared)
	}
	if !seen[PSEUDO_EOF] {
		return nil, errors.Wrap(ErrMalformedTree, "tree has no pseudo-EOF leaf")
	}
	return t, nil
}
