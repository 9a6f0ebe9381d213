package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetch kinds. They pick the Accept header and label metrics.
const (
	KindPage  = "page"
	KindImage = "image"
)

// ErrBodyTooLarge is returned when a response exceeds FetchRequest.MaxBytes.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "tls", "std").
	Name() string

	// Fetch retrieves the resource for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a resource.
type FetchRequest struct {
	URL      string
	Kind     string
	Headers  map[string]string
	Timeout  time.Duration
	MaxBytes int64
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
	EngineName  string
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// permanent reports whether retrying the same URL on another engine is
// pointless: the server answered and the answer is final.
func permanent(err error) bool {
	if errors.Is(err, ErrBodyTooLarge) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return true
		}
	}
	return false
}

func acceptFor(kind string) string {
	if kind == KindImage {
		return "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	}
	return "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
}

// doGet runs a GET on client and returns the bounded body of a 2xx response.
func doGet(ctx context.Context, client *http.Client, name string, req *FetchRequest, headers map[string]string) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", name, err)
	}

	httpReq.Header.Set("Accept", acceptFor(req.Kind))
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	// Per-request headers override engine defaults.
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &StatusError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	body, err := readLimited(resp.Body, req.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", name, err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		EngineName:  name,
	}, nil
}

// readLimited reads at most max bytes; one byte more is an error rather
// than a silent truncation. max <= 0 disables the limit.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	return nil
}
