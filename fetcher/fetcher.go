// Package fetcher downloads pages and images through the fetch engines and
// maps every failure onto the archive error taxonomy.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/webkeep/config"
	"github.com/use-agent/webkeep/engine"
	"github.com/use-agent/webkeep/metrics"
	"github.com/use-agent/webkeep/models"
	"golang.org/x/net/html/charset"
)

// Fetcher is a thin GET client: no retries, no caching.
type Fetcher struct {
	engine   engine.Engine
	timeout  time.Duration
	maxBytes int64
	memory   *engine.DomainMemory
}

// New builds a Fetcher from configuration. With MultiEngine enabled the tls
// and std engines are raced by a Dispatcher; otherwise only tls is used.
func New(cfg config.FetchConfig) (*Fetcher, error) {
	tlsEngine := engine.NewTLSEngine()
	if !cfg.MultiEngine {
		return NewWithEngine(tlsEngine, cfg.Timeout, cfg.MaxBodyBytes), nil
	}

	stdEngine, err := engine.NewStdEngine(cfg.UserAgent, cfg.Proxy)
	if err != nil {
		return nil, err
	}
	memory := engine.NewDomainMemory(cfg.DomainMemoryTTL)
	dispatcher := engine.NewDispatcher(
		[]engine.Engine{tlsEngine, stdEngine},
		cfg.EscalationDelays,
		memory,
	)
	slog.Debug("multi-engine fetcher enabled", "delays", cfg.EscalationDelays)

	f := NewWithEngine(dispatcher, cfg.Timeout, cfg.MaxBodyBytes)
	f.memory = memory
	return f, nil
}

// NewWithEngine wraps a single engine (or dispatcher).
func NewWithEngine(e engine.Engine, timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{engine: e, timeout: timeout, maxBytes: maxBytes}
}

// Close stops background work owned by the fetcher.
func (f *Fetcher) Close() {
	if f.memory != nil {
		f.memory.Stop()
	}
}

// GetText fetches rawURL and decodes the body to UTF-8 using the
// Content-Type charset or the document's <meta charset>.
func (f *Fetcher) GetText(ctx context.Context, rawURL string) (string, error) {
	res, err := f.get(ctx, rawURL, engine.KindPage)
	if err != nil {
		return "", err
	}
	return decodeText(res.Body, res.ContentType), nil
}

// GetBytes fetches rawURL and returns the raw body.
func (f *Fetcher) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := f.get(ctx, rawURL, engine.KindImage)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, kind string) (*engine.FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, models.NewArchiveError(models.ErrCodeFetchFailed,
			fmt.Sprintf("not an http(s) URL: %q", rawURL), err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	res, err := f.engine.Fetch(ctx, &engine.FetchRequest{
		URL:      rawURL,
		Kind:     kind,
		Timeout:  f.timeout,
		MaxBytes: f.maxBytes,
	})
	metrics.ObserveFetch(kind, time.Since(start))
	if err != nil {
		return nil, models.NewArchiveError(models.ErrCodeFetchFailed, fetchMessage(rawURL, err), err)
	}
	return res, nil
}

func fetchMessage(rawURL string, err error) string {
	var se *engine.StatusError
	switch {
	case errors.As(err, &se):
		return se.Error()
	case errors.Is(err, engine.ErrBodyTooLarge):
		return fmt.Sprintf("GET %s: response too large", rawURL)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("GET %s: timed out", rawURL)
	default:
		return fmt.Sprintf("GET %s failed", rawURL)
	}
}

// decodeText converts body to UTF-8. Undecodable input is returned as-is.
func decodeText(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
