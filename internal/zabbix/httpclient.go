package zabbix

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

type HTTPClientConfig struct {
	Timeout            time.Duration
	UserAgent          string
	MaxIdleConns       int
	IdleConnTimeout    time.Duration
	InsecureSkipVerify bool
}

// NewHTTPClient returns the HTTP client shared by every JSON-RPC call.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 16
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second, // TCP connect timeout
			KeepAlive: 30 * time.Second,
		}).DialContext,

		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		// Frontends behind self-signed certificates are common for Zabbix.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &http.Client{
		Transport: roundTripperWithUA{
			rt:        transport,
			userAgent: cfg.UserAgent,
		},
		Timeout: cfg.Timeout, // hard safety net (per request ctx should still be used)
	}
}

// roundTripperWithUA injects a User-Agent into every request.
type roundTripperWithUA struct {
	rt        http.RoundTripper
	userAgent string
}

func (r roundTripperWithUA) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	return r.rt.RoundTrip(req)
}
