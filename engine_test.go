package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"hufpress/huffman"
)

func newTestEngine(t *testing.T, script string) *Engine {
	t.Helper()

	p, err := NewPolicy(script)
	if err != nil {
		t.Fatal(err)
	}
	return &Engine{Policy: p, Feed: NewFeed()}
}

func TestEngineAutoFormat(t *testing.T) {
	data := []byte(strings.Repeat("auto format selection ", 200))

	tests := []struct {
		script string
		want   huffman.HeaderFormat
	}{
		{DEFAULT_POLICY, huffman.STORE_TREE},
		{`func choose(o, c, t) { return "counts" }`, huffman.STORE_COUNTS},
	}

	for _, tt := range tests {
		e := newTestEngine(t, tt.script)
		out, stats, err := e.CompressBytes(context.Background(), data, FORMAT_AUTO, false)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Format != tt.want {
			t.Errorf("got %s, want %s", stats.Format, tt.want)
		}

		back := &bytes.Buffer{}
		if _, err := e.Decompress(bytes.NewReader(out), back); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(back.Bytes(), data) {
			t.Errorf("%s: round trip mismatch", tt.want)
		}
	}
}

func TestEngineMatchesLibrary(t *testing.T) {
	data := []byte("AAAAAABBBCCD")
	e := newTestEngine(t, DEFAULT_POLICY)

	for _, format := range []string{"counts", "tree"} {
		f, _ := huffman.ParseHeaderFormat(format)
		want, _, err := huffman.CompressBytes(data, f, true)
		if err != nil {
			t.Fatal(err)
		}

		got, _, err := e.CompressBytes(context.Background(), data, format, true)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: engine output differs from the library's", format)
		}
	}
}

func TestEngineSkipsGrowth(t *testing.T) {
	e := newTestEngine(t, DEFAULT_POLICY)
	job, err := e.Prepare(context.Background(), bytes.NewReader([]byte("abc")), "tree")
	if err != nil {
		t.Fatal(err)
	}
	if job.Writes(false) {
		t.Errorf("a 3-byte input should not be written without force")
	}
	if !job.Writes(true) {
		t.Errorf("force should always write")
	}

	b := &bytes.Buffer{}
	bits, err := job.Commit(b, false)
	if err != nil {
		t.Fatal(err)
	}
	if bits != 0 || b.Len() != 0 {
		t.Errorf("got %d bits and %d bytes, want nothing", bits, b.Len())
	}
}

func TestEngineBadFormat(t *testing.T) {
	e := &Engine{}
	if _, err := e.Prepare(context.Background(), bytes.NewReader(nil), "zip"); err == nil {
		t.Errorf("unknown format should fail")
	}
	if _, err := e.Prepare(context.Background(), bytes.NewReader(nil), FORMAT_AUTO); err == nil {
		t.Errorf("auto without a policy should fail")
	}
}

func TestEngineEvents(t *testing.T) {
	e := newTestEngine(t, DEFAULT_POLICY)
	ch := e.Feed.Subscribe()

	data := []byte(strings.Repeat("event ", 300))
	go func() {
		e.CompressBytes(context.Background(), data, "tree", false)
	}()

	select {
	case ev := <-ch:
		if ev.Kind != "compress" || ev.Format != "tree" || ev.InBytes != int64(len(data)) {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.BitsSaved <= 0 || ev.Skipped {
			t.Errorf("event should report a saving: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no event received")
	}
}

func TestFeedFanOut(t *testing.T) {
	f := NewFeed()
	a := f.Subscribe()
	b := f.Subscribe()

	f.Broadcast(JobEvent{Kind: "decompress", OutBytes: 7})

	for _, ch := range []<-chan JobEvent{a, b} {
		select {
		case ev := <-ch:
			if ev.Kind != "decompress" || ev.OutBytes != 7 {
				t.Errorf("unexpected event %+v", ev)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("subscriber got nothing")
		}
	}
}
