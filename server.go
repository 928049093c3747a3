package main

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/contrib/renders/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"golang.org/x/net/websocket"

	"hufpress/huffman"
)

const INDEX_TEMPLATE = `<!DOCTYPE html>
<html>
<head><title>hufpress</title></head>
<body>
<h1>hufpress</h1>
<table>
<tr><th>Default format</th><td>{{.Config.Format}}</td></tr>
<tr><th>Force</th><td>{{.Config.Force}}</td></tr>
<tr><th>Compressed</th><td>{{.Counters.Compressed}} jobs, {{.Counters.CompressedIn}} bytes in, {{.Counters.CompressedOut}} bytes out</td></tr>
<tr><th>Skipped</th><td>{{.Counters.Skipped}} jobs</td></tr>
<tr><th>Decompressed</th><td>{{.Counters.Decompressed}} jobs</td></tr>
<tr><th>Failed</th><td>{{.Counters.Failed}} requests</td></tr>
</table>
<h2>Policy</h2>
<pre>{{.Script}}</pre>
</body>
</html>
`

type Counters struct {
	Compressed    int64
	CompressedIn  int64
	CompressedOut int64
	Skipped       int64
	Decompressed  int64
	Failed        int64
}

type Server struct {
	Config *Config
	Engine *Engine

	counters Counters
	mu       sync.Mutex
}

type PreprocessReply struct {
	Format         string `json:"format"`
	Symbols        int64  `json:"symbols"`
	OriginalBits   int64  `json:"original_bits"`
	CompressedBits int64  `json:"compressed_bits"`
	SavedBits      int64  `json:"saved_bits"`
}

func NewServer(config *Config, engine *Engine) *Server {
	return &Server{Config: config, Engine: engine}
}

func (s *Server) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counters
}

func (s *Server) count(fn func(c *Counters)) {
	s.mu.Lock()
	fn(&s.counters)
	s.mu.Unlock()
}

// statusOf maps an error from the codec to an HTTP status and a short
// error name.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, huffman.ErrMagicNumberMismatch):
		return http.StatusBadRequest, "bad_magic"
	case errors.Is(err, huffman.ErrInvalidHeaderFormat):
		return http.StatusBadRequest, "bad_header_format"
	case errors.Is(err, huffman.ErrMalformedTree):
		return http.StatusBadRequest, "bad_tree"
	case errors.Is(err, huffman.ErrInvalidConfiguration):
		return http.StatusBadRequest, "bad_config"
	case errors.Is(err, huffman.ErrFrequencyOverflow):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, huffman.ErrTruncatedStream):
		return http.StatusUnprocessableEntity, "truncated"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) abort(c *gin.Context, err error) {
	s.count(func(n *Counters) { n.Failed++ })

	status, name := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %s", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":       name,
		"description": err.Error(),
	})
}

type compressParams struct {
	Format string `form:"format"`
	Force  *bool  `form:"force"`
}

func (s *Server) params(c *gin.Context) (format string, force bool, err error) {
	var p compressParams
	if err := c.ShouldBindQuery(&p); err != nil {
		return "", false, errors.Wrap(huffman.ErrInvalidConfiguration, err.Error())
	}

	format = p.Format
	if format == "" {
		format = s.Config.Format
	}
	force = s.Config.Force
	if p.Force != nil {
		force = *p.Force
	}
	return format, force, nil
}

func (s *Server) handlePreprocess(c *gin.Context) {
	format, _, err := s.params(c)
	if err != nil {
		s.abort(c, err)
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.abort(c, err)
		return
	}

	job, err := s.Engine.Prepare(c.Request.Context(), bytes.NewReader(data), format)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, PreprocessReply{
		Format:         job.Stats.Format.String(),
		Symbols:        job.Stats.Symbols,
		OriginalBits:   job.Stats.OriginalBits,
		CompressedBits: job.Stats.CompressedBits,
		SavedBits:      job.Stats.Saved(),
	})
}

func (s *Server) handleCompress(c *gin.Context) {
	format, force, err := s.params(c)
	if err != nil {
		s.abort(c, err)
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.abort(c, err)
		return
	}

	out, stats, err := s.Engine.CompressBytes(c.Request.Context(), data, format, force)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.Header("X-Header-Format", stats.Format.String())
	c.Header("X-Bits-Saved", strconv.FormatInt(stats.Saved(), 10))
	if out == nil {
		s.count(func(n *Counters) { n.Skipped++ })
		c.Status(http.StatusNoContent)
		return
	}

	s.count(func(n *Counters) {
		n.Compressed++
		n.CompressedIn += int64(len(data))
		n.CompressedOut += int64(len(out))
	})
	c.Header("X-Bits-Written", strconv.FormatInt(stats.CompressedBits, 10))
	c.Data(http.StatusOK, "application/octet-stream", out)
}

func (s *Server) handleDecompress(c *gin.Context) {
	b := &bytes.Buffer{}
	if _, err := s.Engine.Decompress(c.Request.Body, b); err != nil {
		s.abort(c, err)
		return
	}

	s.count(func(n *Counters) { n.Decompressed++ })
	c.Data(http.StatusOK, "application/octet-stream", b.Bytes())
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.Engine.Feed == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	handler := websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		enc := json.NewEncoder(ws)
		ch := s.Engine.Feed.Subscribe()

		// Subscribers never send anything, a finished read means they left.
		gone := make(chan struct{})
		go func() {
			io.Copy(io.Discard, ws)
			close(gone)
		}()

		for {
			select {
			case <-gone:
				return
			case <-c.Request.Context().Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				err := enc.Encode(event)
				if err != nil {
					log.Printf("cannot send event: %s", err)
					return
				}
			}
		}
	})
	handler.ServeHTTP(c.Writer, c.Request)
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	render := multitemplate.New()
	render.Add("index.html", template.Must(template.New("index.html").Parse(INDEX_TEMPLATE)))
	r.HTMLRender = render

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/", func(c *gin.Context) {
		script := ""
		if s.Engine.Policy != nil {
			script = s.Engine.Policy.Script
		}
		c.HTML(http.StatusOK, "index.html", gin.H{
			"Config":   s.Config,
			"Counters": s.Counters(),
			"Script":   script,
		})
	})

	api := r.Group("/api")
	{
		api.POST("/preprocess", s.handlePreprocess)
		api.POST("/compress", s.handleCompress)
		api.POST("/decompress", s.handleDecompress)
	}

	r.GET("/events/ws", s.handleEvents)

	return r
}

// vim: ai:ts=8:sw=8:noet:syntax=go
