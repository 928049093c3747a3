package huffman

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"hufpress/pqueue"
)

const (
	LEFT  = '0'
	RIGHT = '1'
)

// FrequencyTable holds the occurrence count of every symbol, indexed by
// symbol value. Symbols with a zero count are absent.
type FrequencyTable [NUM_SYMBOLS]uint64

// CountFrequencies reads r to the end and tallies its bytes. The pseudo-EOF
// symbol is always given a count of one. n is the number of bytes read.
func CountFrequencies(r io.Reader) (freqs *FrequencyTable, n int64, err error) {
	freqs = &FrequencyTable{}
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, n, errors.Wrap(err, "cannot read input")
		}
		freqs[b]++
		n++
	}
	freqs[PSEUDO_EOF] = 1
	return freqs, n, nil
}

// Symbols returns the number of symbols with a nonzero count.
func (f *FrequencyTable) Symbols() int {
	n := 0
	for _, c := range f {
		if c != 0 {
			n++
		}
	}
	return n
}

// Node is either a leaf carrying a symbol or an internal node with exactly
// two children. The Symbol of an internal node is -1.
type Node struct {
	Symbol      Symbol
	Freq        uint64
	Left, Right *Node
}

func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

type Tree struct {
	Root       *Node
	NumLeaves  int
	TotalNodes int
}

// BuildTree merges the two lowest-count nodes until one root remains. Leaves
// enter the queue in ascending symbol order and equal counts leave it in
// insertion order, so the shape is a pure function of freqs: the decoder of a
// STORE_COUNTS stream depends on rebuilding exactly the encoder's tree.
func BuildTree(freqs *FrequencyTable) (*Tree, error) {
	q := pqueue.New[*Node]()
	for sym, c := range freqs {
		if c == 0 {
			continue
		}
		q.Insert(&Node{Symbol: Symbol(sym), Freq: c}, c)
	}
	if q.Len() == 0 {
		return nil, errors.Wrap(ErrInvalidConfiguration, "empty frequency table")
	}

	t := &Tree{NumLeaves: q.Len(), TotalNodes: q.Len()}
	for q.Len() > 1 {
		a, _, _ := q.RemoveMin()
		b, _, _ := q.RemoveMin()
		n := &Node{
			Symbol: -1,
			Freq:   a.Freq + b.Freq,
			Left:   a,
			Right:  b,
		}
		t.TotalNodes++
		q.Insert(n, n.Freq)
	}
	t.Root, _, _ = q.RemoveMin()
	return t, nil
}

// CodeTable maps a symbol to its code, a string of LEFT and RIGHT
// characters. Symbols not in the tree map to "".
type CodeTable [NUM_SYMBOLS]string

// Codes derives the code of every leaf from its path below the root. A tree
// that is a single leaf gives that leaf the one-bit code "0".
func (t *Tree) Codes() *CodeTable {
	table := &CodeTable{}
	if t.Root == nil {
		return table
	}
	if t.Root.IsLeaf() {
		table[t.Root.Symbol] = string(LEFT)
		return table
	}

	type frame struct {
		node   *Node
		prefix string
	}
	stack := []frame{{t.Root, ""}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.IsLeaf() {
			table[f.node.Symbol] = f.prefix
			continue
		}
		stack = append(stack,
			frame{f.node.Right, f.prefix + string(RIGHT)},
			frame{f.node.Left, f.prefix + string(LEFT)},
		)
	}
	return table
}

// walkPreOrder calls fn for every node, parents before children and left
// subtrees before right ones.
func (t *Tree) walkPreOrder(fn func(n *Node) error) error {
	if t.Root == nil {
		return nil
	}
	stack := []*Node{t.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := fn(n); err != nil {
			return err
		}
		if !n.IsLeaf() {
			stack = append(stack, n.Right, n.Left)
		}
	}
	return nil
}

// Bits is the sum of count times code length over every symbol.
func (c *CodeTable) Bits(freqs *FrequencyTable) int64 {
	var total int64
	for sym, n := range freqs {
		total += int64(n) * int64(len(c[sym]))
	}
	return total
}
