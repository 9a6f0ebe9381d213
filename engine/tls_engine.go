package engine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	tls "github.com/refraction-networking/utls"
)

// chromeUserAgent matches the TLS fingerprint the tls engine presents.
const chromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// TLSEngine fetches over a Chrome-like TLS ClientHello so that sites which
// fingerprint Go's default handshake still serve the page.
type TLSEngine struct {
	client *http.Client
}

// chromeH1Spec is a Chrome ClientHello with ALPN restricted to http/1.1.
// http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewTLSEngine creates a TLSEngine. Plain http:// URLs are fetched without TLS.
func NewTLSEngine() *TLSEngine {
	transport := &http.Transport{
		DialTLSContext:      dialChromeTLS,
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &TLSEngine{
		client: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
	}
}

func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (e *TLSEngine) Name() string { return "tls" }

func (e *TLSEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	return doGet(ctx, e.client, e.Name(), req, map[string]string{
		"User-Agent":      chromeUserAgent,
		"Accept-Language": "en-US,en;q=0.9",
		"Accept-Encoding": "identity",
	})
}
