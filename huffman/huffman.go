/**
 * Copyright 2022 kmeaw
 *
 * Licensed under the GNU Affero General Public License (AGPL).
 *
 * This program is free software: you can redistribute it and/or modify it
 * under the terms of the GNU Affero General Public License as published by the
 * Free Software Foundation, version 3 of the License.
 *
 * This program is distributed in the hope that it will be useful, but WITHOUT
 * ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
 * FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
 * for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package huffman compresses byte streams with a static Huffman code over
// the 256 byte values plus a pseudo-EOF symbol.
//
// A compressed stream is laid out as follows, every integer field being 32
// bits wide and written most significant bit first:
//
//	magic number (MAGIC_NUMBER)
//	header format tag (STORE_COUNTS or STORE_TREE)
//	STORE_COUNTS: 256 symbol counts, symbols 0..255 in order
//	STORE_TREE:   tree bit length, then a pre-order walk of the tree where an
//	              internal node is a 0 bit and a leaf is a 1 bit followed by
//	              its 9-bit symbol
//	payload codes, terminated by the code of PSEUDO_EOF
//
// The final byte is padded with zero bits.
package huffman

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	ALPH_SIZE     = 256
	NUM_SYMBOLS   = ALPH_SIZE + 1
	BITS_PER_WORD = 8
	BITS_PER_INT  = 32
	BITS_PER_LEAF = 9

	MAGIC_NUMBER uint32 = 0xface8200
)

// Symbol is a byte value in [0, 255] or PSEUDO_EOF.
type Symbol int

const PSEUDO_EOF Symbol = ALPH_SIZE

func (s Symbol) String() string {
	if s == PSEUDO_EOF {
		return "EOF"
	}
	if s >= 0x20 && s < 0x7f {
		return fmt.Sprintf("%q", rune(s))
	}
	return fmt.Sprintf("0x%02x", int(s))
}

// HeaderFormat selects how the code tree is stored in a compressed stream.
type HeaderFormat uint32

const (
	STORE_COUNTS HeaderFormat = 0x7263
	STORE_TREE   HeaderFormat = 0x7274
)

func (f HeaderFormat) Valid() bool {
	return f == STORE_COUNTS || f == STORE_TREE
}

func (f HeaderFormat) String() string {
	switch f {
	case STORE_COUNTS:
		return "counts"
	case STORE_TREE:
		return "tree"
	}
	return fmt.Sprintf("HeaderFormat(0x%x)", uint32(f))
}

// ParseHeaderFormat accepts the names printed by HeaderFormat.String.
func ParseHeaderFormat(name string) (HeaderFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "counts", "scf":
		return STORE_COUNTS, nil
	case "tree", "stf":
		return STORE_TREE, nil
	}
	return 0, errors.Wrapf(ErrInvalidConfiguration, "unknown header format %q", name)
}

// vim: ai:ts=8:sw=8:noet:syntax=go
