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
package main

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"hufpress/huffman"
)

const FORMAT_AUTO = "auto"

// Engine prepares and commits compression jobs and reports finished jobs to
// Feed, if set.
type Engine struct {
	Policy *Policy
	Feed   *Feed
}

// Job is an input that went through preprocessing and waits to be committed.
type Job struct {
	Stats huffman.Stats

	c      *huffman.Compressor
	src    io.ReadSeeker
	engine *Engine
}

func rewind(src io.ReadSeeker) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "cannot rewind input")
	}
	return nil
}

// Prepare runs the preprocessing phase over src. With FORMAT_AUTO src is
// preprocessed for both header formats and the policy picks one.
func (e *Engine) Prepare(ctx context.Context, src io.ReadSeeker, format string) (*Job, error) {
	if strings.EqualFold(format, FORMAT_AUTO) {
		return e.prepareAuto(ctx, src)
	}

	f, err := huffman.ParseHeaderFormat(format)
	if err != nil {
		return nil, err
	}
	return e.prepareFormat(src, f)
}

func (e *Engine) prepareFormat(src io.ReadSeeker, format huffman.HeaderFormat) (*Job, error) {
	c := huffman.NewCompressor()
	if _, err := c.Preprocess(src, format); err != nil {
		return nil, err
	}
	if err := rewind(src); err != nil {
		return nil, err
	}
	return &Job{Stats: c.Stats(), c: c, src: src, engine: e}, nil
}

func (e *Engine) prepareAuto(ctx context.Context, src io.ReadSeeker) (*Job, error) {
	if e.Policy == nil {
		return nil, errors.Wrap(huffman.ErrInvalidConfiguration, "auto format needs a policy script")
	}

	counts, err := e.prepareFormat(src, huffman.STORE_COUNTS)
	if err != nil {
		return nil, err
	}
	tree, err := e.prepareFormat(src, huffman.STORE_TREE)
	if err != nil {
		return nil, err
	}

	chosen, err := e.Policy.Choose(ctx, counts.Stats.OriginalBits, counts.Stats.Saved(), tree.Stats.Saved())
	if err != nil {
		return nil, err
	}
	if chosen == huffman.STORE_COUNTS {
		return counts, nil
	}
	return tree, nil
}

// Writes reports whether Commit with force would produce any output.
func (j *Job) Writes(force bool) bool {
	return force || !j.Stats.Grows()
}

func (j *Job) Codes() *huffman.CodeTable {
	return j.c.Codes()
}

func (j *Job) Frequencies() *huffman.FrequencyTable {
	return j.c.Frequencies()
}

// Commit writes the compressed input to w and returns the number of bits
// written.
func (j *Job) Commit(w io.Writer, force bool) (int64, error) {
	bits, err := j.c.Compress(j.src, w, force)
	if err != nil {
		return 0, err
	}

	if j.engine.Feed != nil {
		j.engine.Feed.Broadcast(JobEvent{
			Kind:      "compress",
			Format:    j.Stats.Format.String(),
			InBytes:   j.Stats.Symbols,
			OutBytes:  (bits + 7) / 8,
			BitsSaved: j.Stats.Saved(),
			Skipped:   bits == 0,
		})
	}
	return bits, nil
}

// CompressBytes prepares and commits data in one go. out is nil when
// nothing was written.
func (e *Engine) CompressBytes(ctx context.Context, data []byte, format string, force bool) (out []byte, stats huffman.Stats, err error) {
	job, err := e.Prepare(ctx, bytes.NewReader(data), format)
	if err != nil {
		return nil, stats, err
	}

	b := &bytes.Buffer{}
	bits, err := job.Commit(b, force)
	if err != nil {
		return nil, job.Stats, err
	}
	if bits == 0 {
		return nil, job.Stats, nil
	}
	return b.Bytes(), job.Stats, nil
}

func (e *Engine) Decompress(r io.Reader, w io.Writer) (int64, error) {
	cr := &countingReader{r: r}
	bits, err := huffman.Decompress(cr, w)
	if err != nil {
		return 0, err
	}

	if e.Feed != nil {
		e.Feed.Broadcast(JobEvent{
			Kind:     "decompress",
			InBytes:  cr.n,
			OutBytes: bits / 8,
		})
	}
	return bits, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// vim: ai:ts=8:sw=8:noet:syntax=go
