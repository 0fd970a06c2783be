// File: internal/network/httpclient.go
package network

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Default TCP/HTTP settings for the outbound clients (profile control service
// and SMS provider). Both are low-volume JSON/text APIs, so the pool is kept
// small.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout        = 30 * time.Second

	DefaultMaxIdleConns        = 20
	DefaultMaxIdleConnsPerHost = 5
	DefaultIdleConnTimeout     = 30 * time.Second
)

// ClientConfig holds the configuration for the HTTP client and transport.
type ClientConfig struct {
	RequestTimeout  time.Duration
	IgnoreTLSErrors bool
	ForceHTTP2      bool
}

// NewDefaultClientConfig returns a configuration suitable for the provider
// clients.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RequestTimeout: DefaultRequestTimeout,
		ForceHTTP2:     true,
	}
}

// NewClient builds an *http.Client with a tuned transport. A nil cfg uses the
// defaults.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}

	dialer := &net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAliveInterval,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.IgnoreTLSErrors,
		},
	}

	if cfg.ForceHTTP2 {
		// Upgrades the transport in place; falls back to HTTP/1.1 when the
		// peer does not speak h2 (the local profile service usually doesn't).
		http2.ConfigureTransport(transport)
	}

	return &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}
}
