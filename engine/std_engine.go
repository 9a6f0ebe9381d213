package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// StdEngine fetches with Go's stock net/http client. It honours a proxy and
// negotiates HTTP/2, which the tls engine cannot.
type StdEngine struct {
	client    *http.Client
	userAgent string
}

// NewStdEngine creates a StdEngine. proxyURL may be empty.
func NewStdEngine(userAgent, proxyURL string) (*StdEngine, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		pu, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("std_engine: parse proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(pu)
	}
	return &StdEngine{
		client: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		userAgent: userAgent,
	}, nil
}

func (e *StdEngine) Name() string { return "std" }

func (e *StdEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	return doGet(ctx, e.client, e.Name(), req, map[string]string{
		"User-Agent": e.userAgent,
	})
}
