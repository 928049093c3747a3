package huffman

import (
	"io"

	"github.com/pkg/errors"
)

var (
	ErrMagicNumberMismatch  = errors.New("not a huffman stream: magic number mismatch")
	ErrInvalidHeaderFormat  = errors.New("invalid header format tag")
	ErrTruncatedStream      = errors.New("truncated stream")
	ErrMalformedTree        = errors.New("malformed tree header")
	ErrPrecondition         = errors.New("compress called without a matching preprocess")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrFrequencyOverflow    = errors.New("symbol count does not fit a 32-bit field")
)

// readError classifies an error returned by a bit source while reading what.
func readError(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncatedStream, "reading %s", what)
	}
	return errors.Wrapf(err, "cannot read %s", what)
}

func writeError(err error, what string) error {
	return errors.Wrapf(err, "cannot write %s", what)
}
