package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/context/ctxhttp"
)

// RemoteClient talks to the HTTP API of another hufpress instance.
type RemoteClient struct {
	BaseURL string

	h *http.Client
}

func NewRemoteClient(base_url string) *RemoteClient {
	return &RemoteClient{
		BaseURL: strings.TrimSuffix(base_url, "/"),
		h: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type APIError struct {
	req  *http.Request
	resp *http.Response
	data []byte
	err  error
}

func (e APIError) Error() string {
	b := &bytes.Buffer{}
	if e.req != nil {
		fmt.Fprintf(b, "error while calling %s: ", e.req.URL)
	}
	if e.resp != nil {
		fmt.Fprintf(b, "got status %d: ", e.resp.StatusCode)
	}
	if e.data != nil {
		fmt.Fprintf(b, "got data: %q: ", string(e.data))
	}
	if e.err != nil {
		b.WriteString(e.err.Error())
	} else {
		b.WriteString("unexpected status code")
	}

	return b.String()
}

// StatusCode is 0 when the request never got a reply.
func (e APIError) StatusCode() int {
	if e.resp == nil {
		return 0
	}
	return e.resp.StatusCode
}

func (c *RemoteClient) apiCall(ctx context.Context, path string, query url.Values, body []byte) (resp *http.Response, data []byte, err error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest("POST", u, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("cannot make http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", "hufpress")

	resp, err = ctxhttp.Do(ctx, c.h, req)
	if err != nil {
		return nil, nil, APIError{
			req: req,
			err: err,
		}
	}

	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, APIError{
			req: req,
			err: err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, APIError{
			req:  req,
			resp: resp,
			data: data,
		}
	}

	return resp, data, nil
}

// Compress returns nil data and no error when the server decided not to
// write anything.
func (c *RemoteClient) Compress(ctx context.Context, data []byte, format string, force bool) (out []byte, saved int64, err error) {
	resp, out, err := c.apiCall(ctx, "/api/compress", url.Values{
		"format": []string{format},
		"force":  []string{strconv.FormatBool(force)},
	}, data)
	if err != nil {
		return nil, 0, err
	}

	saved, _ = strconv.ParseInt(resp.Header.Get("X-Bits-Saved"), 10, 64)
	if resp.StatusCode == http.StatusNoContent {
		return nil, saved, nil
	}
	return out, saved, nil
}

func (c *RemoteClient) Decompress(ctx context.Context, data []byte) ([]byte, error) {
	_, out, err := c.apiCall(ctx, "/api/decompress", nil, data)
	return out, err
}

func (c *RemoteClient) Preprocess(ctx context.Context, data []byte, format string) (r PreprocessReply, err error) {
	_, out, err := c.apiCall(ctx, "/api/preprocess", url.Values{
		"format": []string{format},
	}, data)
	if err != nil {
		return r, err
	}

	err = json.Unmarshal(out, &r)
	if err != nil {
		return r, fmt.Errorf("cannot unmarshal data: %w", err)
	}
	return r, nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
