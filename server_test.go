package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"

	"hufpress/huffman"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	config := &Config{}
	config.SetDefaults()
	config.SetDefaultScript()
	return NewServer(config, newTestEngine(t, config.Script))
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorName(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var reply struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("cannot parse error reply %q: %s", w.Body.String(), err)
	}
	return reply.Error
}

func TestServerHealthAndIndex(t *testing.T) {
	r := newTestServer(t).Router()

	if w := do(r, "GET", "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: got %d", w.Code)
	}

	w := do(r, "GET", "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("index: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "func choose") {
		t.Errorf("index page should show the policy script")
	}
}

func TestServerCompressRoundTrip(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()
	data := []byte(strings.Repeat("compress me over http ", 100))

	for _, format := range []string{"counts", "tree", "auto"} {
		w := do(r, "POST", "/api/compress?format="+format, data)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: compress status %d: %s", format, w.Code, w.Body.String())
		}
		if w.Header().Get("X-Bits-Written") == "" || w.Header().Get("X-Header-Format") == "" {
			t.Errorf("%s: missing accounting headers", format)
		}

		back := do(r, "POST", "/api/decompress", w.Body.Bytes())
		if back.Code != http.StatusOK {
			t.Fatalf("%s: decompress status %d: %s", format, back.Code, back.Body.String())
		}
		if !bytes.Equal(back.Body.Bytes(), data) {
			t.Errorf("%s: round trip mismatch", format)
		}
	}

	counters := s.Counters()
	if counters.Compressed != 3 || counters.Decompressed != 3 {
		t.Errorf("counters: %+v", counters)
	}
}

func TestServerForce(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	w := do(r, "POST", "/api/compress?format=tree", []byte("AAAAAABBBCCD"))
	if w.Code != http.StatusNoContent {
		t.Fatalf("without force: got %d, want 204", w.Code)
	}
	if got := w.Header().Get("X-Bits-Saved"); got != "-80" {
		t.Errorf("X-Bits-Saved: got %q, want -80", got)
	}

	w = do(r, "POST", "/api/compress?format=tree&force=true", []byte("AAAAAABBBCCD"))
	if w.Code != http.StatusOK {
		t.Fatalf("with force: got %d", w.Code)
	}
	want, _, err := huffman.CompressBytes([]byte("AAAAAABBBCCD"), huffman.STORE_TREE, true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(w.Body.Bytes(), want) {
		t.Errorf("forced output differs from the library's")
	}

	s.Config.Force = true
	if w := do(r, "POST", "/api/compress?format=tree", []byte("AAAAAABBBCCD")); w.Code != http.StatusOK {
		t.Errorf("config force: got %d, want 200", w.Code)
	}
	if w := do(r, "POST", "/api/compress?format=tree&force=false", []byte("AAAAAABBBCCD")); w.Code != http.StatusNoContent {
		t.Errorf("query should override config force: got %d, want 204", w.Code)
	}
}

func TestServerPreprocess(t *testing.T) {
	r := newTestServer(t).Router()

	w := do(r, "POST", "/api/preprocess?format=counts", []byte("AAAAAABBBCCD"))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}

	var reply PreprocessReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatal(err)
	}
	want := PreprocessReply{
		Format:         "counts",
		Symbols:        12,
		OriginalBits:   96,
		CompressedBits: 64 + 8192 + 26,
		SavedBits:      96 - (64 + 8192 + 26),
	}
	if reply != want {
		t.Errorf("got %+v, want %+v", reply, want)
	}
}

func TestServerErrors(t *testing.T) {
	r := newTestServer(t).Router()

	good, _, err := huffman.CompressBytes([]byte(strings.Repeat("x y z ", 50)), huffman.STORE_TREE, true)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		target string
		body   []byte
		status int
		error  string
	}{
		{"bad format", "/api/compress?format=zip", []byte("abc"), http.StatusBadRequest, "bad_config"},
		{"bad force", "/api/compress?force=maybe", []byte("abc"), http.StatusBadRequest, "bad_config"},
		{"bad magic", "/api/decompress", []byte("not compressed at all"), http.StatusBadRequest, "bad_magic"},
		{"bad tag", "/api/decompress", []byte{0xfa, 0xce, 0x82, 0x00, 0, 0, 0, 1}, http.StatusBadRequest, "bad_header_format"},
		{"truncated", "/api/decompress", good[:len(good)-4], http.StatusUnprocessableEntity, "truncated"},
		{"empty", "/api/decompress", nil, http.StatusUnprocessableEntity, "truncated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "POST", tt.target, tt.body)
			if w.Code != tt.status {
				t.Fatalf("got %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if got := errorName(t, w); got != tt.error {
				t.Errorf("error: got %q, want %q", got, tt.error)
			}
		})
	}
}

func TestRemoteClient(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	client := NewRemoteClient(ts.URL + "/")
	ctx := context.Background()
	data := []byte(strings.Repeat("remote client test ", 80))

	out, saved, err := client.Compress(ctx, data, "tree", false)
	if err != nil {
		t.Fatal(err)
	}
	if out == nil || saved <= 0 {
		t.Fatalf("expected output and a saving, got %d bytes, saved %d", len(out), saved)
	}

	back, err := client.Decompress(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("round trip mismatch")
	}

	out, saved, err = client.Compress(ctx, []byte("abc"), "counts", false)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil || saved >= 0 {
		t.Errorf("expected a skipped job, got %d bytes, saved %d", len(out), saved)
	}

	reply, err := client.Preprocess(ctx, data, "tree")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Symbols != int64(len(data)) || reply.Format != "tree" {
		t.Errorf("unexpected reply %+v", reply)
	}

	_, err = client.Decompress(ctx, []byte("garbage"))
	apiErr, ok := err.(APIError)
	if !ok {
		t.Fatalf("got %T (%v), want APIError", err, err)
	}
	if apiErr.StatusCode() != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", apiErr.StatusCode())
	}
}

func TestEventsWebsocket(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events/ws", "", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The handler subscribes asynchronously, so keep producing jobs until
	// one arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		client := NewRemoteClient(ts.URL)
		for {
			select {
			case <-stop:
				return
			case <-time.After(50 * time.Millisecond):
				client.Compress(context.Background(), []byte(strings.Repeat("ws ", 100)), "tree", false)
			}
		}
	}()

	var ev JobEvent
	if err := websocket.JSON.Receive(ws, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "compress" || ev.InBytes != 300 {
		t.Errorf("unexpected event %+v", ev)
	}
}
