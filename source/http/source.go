// Package http provides a ByteSource that streams an HTTP response body.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
)

// Source streams the content at a URL. Constructing a Source probes the
// remote for its content length, so the size can be declared to the encoder
// long before the body is fetched; the GET request itself is issued lazily
// by Open, immediately before the first Read.
type Source struct {
	url     string
	client  *nethttp.Client
	headers nethttp.Header
	size    int64
	body    io.ReadCloser
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithDeclaredSize skips the HEAD probe and trusts the given content size.
// Use it when the size is already known, or when the remote does not answer
// HEAD requests with a Content-Length.
func WithDeclaredSize(size uint64) Option {
	return func(s *Source) {
		s.size = int64(size)
	}
}

// NewSource creates a Source for url. Unless WithDeclaredSize was given, it
// probes the remote with a HEAD request to learn the content size.
func NewSource(url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		client: nethttp.DefaultClient,
		size:   -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}

	if s.size < 0 {
		size, err := s.probeSize()
		if err != nil {
			return nil, err
		}
		s.size = size
	}
	return s, nil
}

// Size returns the remote content length in bytes.
func (s *Source) Size() uint64 {
	return uint64(s.size)
}

// Open issues the GET request and keeps the body for subsequent reads.
func (s *Source) Open() error {
	req, err := s.newRequest(nethttp.MethodGet)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != nethttp.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("fetch %s: %s", s.url, resp.Status)
	}
	if resp.ContentLength >= 0 && resp.ContentLength != s.size {
		resp.Body.Close()
		return fmt.Errorf("fetch %s: content length changed: declared %d, got %d", s.url, s.size, resp.ContentLength)
	}
	s.body = resp.Body
	return nil
}

// Read reads from the open response body.
func (s *Source) Read(p []byte) (int, error) {
	return s.body.Read(p)
}

// Close drains and closes the response body so the connection can be
// reused. Safe to call more than once, and safe to call when Open never
// ran.
func (s *Source) Close() error {
	if s.body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, s.body) //nolint:errcheck // best-effort drain for connection reuse
	err := s.body.Close()
	s.body = nil
	return err
}

// probeSize retrieves the content size from a HEAD request.
func (s *Source) probeSize() (int64, error) {
	req, err := s.newRequest(nethttp.MethodHead)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != nethttp.StatusOK {
		return 0, fmt.Errorf("probe %s: %s", s.url, resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, errors.New("probe: content length unknown")
	}
	return resp.ContentLength, nil
}

// newRequest creates an HTTP request with the configured headers.
func (s *Source) newRequest(method string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(context.Background(), method, s.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}
