// Package transport builds the shared, proxy-aware, connection-pooled
// HTTP client the object-store adapter hands to the AWS SDK, so every
// S3 call in the process reuses the same pool and honors the same
// proxy configuration.
package transport

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/gregakespret/sfagent/internal/config"
)

// NewClient builds an *http.Client tuned for bulk transfer: a large
// connection pool, HTTP/2, disabled response compression (payloads are
// already compressed object bytes), and proxy settings sourced from
// cfg's https.proxyHost/https.proxyPort (falls back to the standard
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment variables when cfg has
// no proxy host configured).
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}

	if cfg != nil && cfg.ProxyHost != "" {
		transport.Proxy = proxyFunc(cfg)
	} else {
		transport.Proxy = nethttp.ProxyFromEnvironment
	}

	_ = http2.ConfigureTransport(transport)
	if os.Getenv("DISABLE_HTTP2") == "true" {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return &nethttp.Client{
		Transport: transport,
		// No overall timeout: C5 bounds individual calls, the
		// orchestrator awaits pool completion without one.
		Timeout: 0,
	}, nil
}

// proxyFunc builds a proxy selector honoring cfg's explicit
// proxyHost/proxyPort over the ambient environment, still respecting
// NO_PROXY-style bypass rules via golang.org/x/net/http/httpproxy.
func proxyFunc(cfg *config.Config) func(*nethttp.Request) (*url.URL, error) {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080
	}
	proxyURL := &url.URL{Scheme: "https", Host: net.JoinHostPort(cfg.ProxyHost, strconv.Itoa(port))}

	httpproxyCfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    os.Getenv("NO_PROXY"),
	}
	fn := httpproxyCfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		return fn(req.URL)
	}
}
