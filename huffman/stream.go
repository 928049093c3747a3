package huffman

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

func writeCode(w BitWriter, code string) error {
	for i := 0; i < len(code); i++ {
		if err := w.WriteBool(code[i] == RIGHT); err != nil {
			return writeError(err, "payload")
		}
	}
	return nil
}

// encodePayload writes the code of every byte of r followed by the code of
// PSEUDO_EOF. It returns the number of bytes consumed from r.
func encodePayload(r io.Reader, w BitWriter, codes *CodeTable) (int64, error) {
	br := bufio.NewReader(r)
	var n int64
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, errors.Wrap(err, "cannot read input")
		}

		code := codes[b]
		if code == "" {
			return n, errors.Wrapf(ErrPrecondition, "symbol %s was not seen by preprocess", Symbol(b))
		}
		if err := writeCode(w, code); err != nil {
			return n, err
		}
		n++
	}

	return n, writeCode(w, codes[PSEUDO_EOF])
}

// decodePayload walks t one bit at a time, writing the symbol of every leaf
// it reaches to w until it reaches the PSEUDO_EOF leaf. A root that is a
// leaf still consumes one bit per symbol. It returns the number of bytes
// written.
func decodePayload(r BitReader, t *Tree, w io.ByteWriter) (int64, error) {
	var n int64
	node := t.Root
	for {
		bit, err := r.ReadBool()
		if err != nil {
			return n, readError(err, "payload")
		}

		if !node.IsLeaf() {
			if bit {
				node = node.Right
			} else {
				node = node.Left
			}
		}
		if !node.IsLeaf() {
			continue
		}

		if node.Symbol == PSEUDO_EOF {
			return n, nil
		}
		if err := w.WriteByte(byte(node.Symbol)); err != nil {
			return n, errors.Wrap(err, "cannot write output")
		}
		n++
		node = t.Root
	}
}
