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
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/yookoala/realpath"

	"hufpress/huffman"
)

var ErrSkipped = errors.New("compression skipped")

func resolve(name string) string {
	real, err := realpath.Realpath(name)
	if err != nil {
		real, err = filepath.Abs(name)
		if err != nil {
			return name
		}
	}
	return real
}

// openInput returns the named file, or all of stdin if name is empty or
// "-". Stdin is buffered since compression reads its input twice.
func openInput(name string) (io.ReadSeeker, func(), error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot read stdin: %w", err)
		}
		return bytes.NewReader(data), func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func createOutput(name string) (io.Writer, func() error, error) {
	if name == "" || name == "-" {
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func printCodes(w io.Writer, freqs *huffman.FrequencyTable, codes *huffman.CodeTable) {
	for sym, n := range freqs {
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "%-6s %10d %s\n", huffman.Symbol(sym), n, codes[sym])
	}
}

func runCompress(ctx context.Context, engine *Engine, in io.ReadSeeker, out, format string, force, print_codes bool) error {
	job, err := engine.Prepare(ctx, in, format)
	if err != nil {
		return err
	}

	if print_codes {
		printCodes(os.Stderr, job.Frequencies(), job.Codes())
	}

	if !job.Writes(force) {
		log.Printf("%s header would grow the input by %d bits, use -f to write it anyway", job.Stats.Format, -job.Stats.Saved())
		return ErrSkipped
	}

	w, done, err := createOutput(out)
	if err != nil {
		return err
	}
	bits, err := job.Commit(w, force)
	if err != nil {
		done()
		return err
	}
	if err := done(); err != nil {
		return err
	}

	log.Printf("wrote %d bits with %s header, saved %d bits", bits, job.Stats.Format, job.Stats.Saved())
	return nil
}

func runDecompress(engine *Engine, in io.Reader, out string) error {
	w, done, err := createOutput(out)
	if err != nil {
		return err
	}
	bits, err := engine.Decompress(in, w)
	if err != nil {
		done()
		return err
	}
	if err := done(); err != nil {
		return err
	}

	log.Printf("wrote %d bytes", bits/huffman.BITS_PER_WORD)
	return nil
}

func runRemote(ctx context.Context, client *RemoteClient, in io.Reader, out, format string, force, decompress bool) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var result []byte
	if decompress {
		result, err = client.Decompress(ctx, data)
		if err != nil {
			return err
		}
	} else {
		var saved int64
		result, saved, err = client.Compress(ctx, data, format, force)
		if err != nil {
			return err
		}
		if result == nil {
			log.Printf("remote skipped compression, it would grow the input by %d bits", -saved)
			return ErrSkipped
		}
	}

	w, done, err := createOutput(out)
	if err != nil {
		return err
	}
	if _, err := w.Write(result); err != nil {
		done()
		return err
	}
	return done()
}

func serve(config *Config, engine *Engine, listen string) {
	gin.SetMode(gin.ReleaseMode)
	s := NewServer(config, engine)
	r := s.Router()

	l, err := net.Listen("tcp", listen)
	if err != nil {
		log.Panic(err)
	}

	log.Printf("Starting up a server on http://%s/", l.Addr())
	log.Panic(r.RunListener(l))
}

func main() {
	config := &Config{}
	err := config.Init()
	if err != nil {
		log.Fatalf("cannot init config system: %s", err)
	}
	err = config.Load()
	if err != nil {
		log.Fatalf("error loading config file: %s", err)
	}

	_ = flag.Bool("c", true, "compress")
	decompress := flag.Bool("d", false, "decompress")
	run_server := flag.Bool("serve", false, "run the HTTP service")
	format := flag.String("format", config.Format, "header format: counts, tree or auto")
	force := flag.Bool("f", config.Force, "write the output even if it is larger than the input")
	output := flag.String("o", "", "output file, stdout if empty")
	print_codes := flag.Bool("p", false, "print the code table to stderr")
	remote := flag.String("remote", config.Remote, "base URL of a remote hufpress server")
	listen := flag.String("listen", config.Listen, "address of the HTTP service")
	save := flag.Bool("save", false, "store -format, -f, -remote and -listen in the config file")
	flag.Parse()

	if *save {
		config.Format = *format
		config.Force = *force
		config.Remote = *remote
		config.Listen = *listen
		if err := config.Save(); err != nil {
			log.Fatalf("cannot save config: %s", err)
		}
		return
	}

	policy, err := NewPolicy(config.Script)
	if err != nil {
		log.Fatalf("cannot load policy: %s", err)
	}
	engine := &Engine{Policy: policy}

	if *run_server {
		engine.Feed = NewFeed()
		serve(config, engine, *listen)
		return
	}

	input := flag.Arg(0)
	if input != "" && *output != "" && resolve(input) == resolve(*output) {
		log.Fatalf("refusing to overwrite input file %q", input)
	}

	in, closeIn, err := openInput(input)
	if err != nil {
		log.Fatalf("cannot open input: %s", err)
	}
	defer closeIn()

	ctx := context.Background()
	switch {
	case *remote != "":
		err = runRemote(ctx, NewRemoteClient(*remote), in, *output, *format, *force, *decompress)
	case *decompress:
		err = runDecompress(engine, in, *output)
	default:
		err = runCompress(ctx, engine, in, *output, *format, *force, *print_codes)
	}

	if errors.Is(err, ErrSkipped) {
		closeIn()
		os.Exit(1)
	}
	if err != nil {
		closeIn()
		log.Fatalf("%s", err)
	}
}

// vim: ai:ts=8:sw=8:noet:syntax=go
