package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds each manifest or segment request.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxSegmentBytes caps how much of one segment is read.
	DefaultMaxSegmentBytes = 16 << 20
	// maxManifestBytes caps the manifest body.
	maxManifestBytes = 1 << 20
)

// FetchError reports a failed manifest or segment request: transport error,
// timeout, non-2xx status or oversized body.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrTooLarge is wrapped by a FetchError when a body exceeds its cap.
var ErrTooLarge = errors.New("response body too large")

// Options tune a Client. Zero values select the defaults.
type Options struct {
	ManifestName    string
	UserAgent       string
	ManifestTimeout time.Duration
	SegmentTimeout  time.Duration
	MaxSegmentBytes int64
	HTTPClient      *http.Client
}

// Client reads one stream: its manifest and the segments it lists. Segment
// references resolve against the base URL, not the manifest location.
type Client struct {
	base     *url.URL
	opts     Options
	http     *http.Client
	manifest string
}

// NewClient returns a Client for the stream rooted at baseURL. A trailing
// slash is added to baseURL so relative references land inside it.
func NewClient(baseURL string, opts Options) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("stream base url %q: scheme must be http or https", baseURL)
	}

	if opts.ManifestName == "" {
		opts.ManifestName = "stream.m3u8"
	}
	if opts.ManifestTimeout <= 0 {
		opts.ManifestTimeout = DefaultTimeout
	}
	if opts.SegmentTimeout <= 0 {
		opts.SegmentTimeout = DefaultTimeout
	}
	if opts.MaxSegmentBytes <= 0 {
		opts.MaxSegmentBytes = DefaultMaxSegmentBytes
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{base: base, opts: opts, http: hc, manifest: opts.ManifestName}, nil
}

// Resolve returns the absolute URL of ref relative to the base URL.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// Manifest fetches and parses the stream manifest.
func (c *Client) Manifest(ctx context.Context) (*Manifest, error) {
	body, err := c.get(ctx, c.manifest, c.opts.ManifestTimeout, maxManifestBytes)
	if err != nil {
		return nil, err
	}
	return ParseManifest(bytes.NewReader(body))
}

// Segment downloads the segment named by ref.
func (c *Client) Segment(ctx context.Context, ref string) ([]byte, error) {
	return c.get(ctx, ref, c.opts.SegmentTimeout, c.opts.MaxSegmentBytes)
}

func (c *Client) get(ctx context.Context, ref string, timeout time.Duration, limit int64) ([]byte, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, &FetchError{URL: ref, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if int64(len(body)) > limit {
		return nil, &FetchError{URL: target, Err: ErrTooLarge}
	}
	return body, nil
}
