// Package transport provides the HTTP round-trippers used to reach the
// remote store and the product catalog.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Options selects the round-tripper built by New.
type Options struct {
	// Timeout bounds connection setup. Whole-request timeouts belong on the
	// http.Client.
	Timeout time.Duration

	// Fingerprint presents a Chrome TLS ClientHello instead of Go's default.
	Fingerprint bool
}

// New returns a round-tripper for opts. The zero Options is a standard
// transport with a 10-second dial timeout.
func New(opts Options) http.RoundTripper {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Fingerprint {
		return NewChromeTransport(opts.Timeout)
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}).DialContext
	base.TLSHandshakeTimeout = opts.Timeout
	return base
}

// =============================================================================
// TLS FINGERPRINT TRANSPORT
// =============================================================================
//
// Storefront APIs behind bot-detecting CDNs throttle Go's stock TLS client
// on its JA3 fingerprint. This transport uses uTLS to present a Chrome
// ClientHello with full HTTP/2 support:
//
//   1. uTLS with HelloChrome_Auto for the handshake
//   2. ALPN negotiates h2 or http/1.1
//   3. http2.Transport frames the connection when h2 is negotiated
//
// =============================================================================

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint. Plain http:// URLs bypass the fingerprint and use a standard
// transport.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}

	h1Transport := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &chromeTransport{
		h2: h2Transport,
		h1: h1Transport,
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip tries HTTP/2 first and falls back to HTTP/1.1 when the server
// does not speak h2. A request body is replayed on fallback only when
// GetBody is set.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

// WithHeader decorates rt so every request carries key: value unless the
// caller already set it.
func WithHeader(rt http.RoundTripper, key, value string) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &headerTransport{next: rt, key: key, value: value}
}

type headerTransport struct {
	next       http.RoundTripper
	key, value string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(t.key) != "" {
		return t.next.RoundTrip(req)
	}
	// RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set(t.key, t.value)
	return t.next.RoundTrip(clone)
}
