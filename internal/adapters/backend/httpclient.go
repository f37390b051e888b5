package backend

import (
	"net"
	"net/http"
	"time"
)

// HTTPConfig tunes the transport used to reach the backend.
type HTTPConfig struct {
	// Timeout bounds the whole request. A context deadline can still shorten it.
	Timeout time.Duration

	DialTimeout     time.Duration
	KeepAlive       time.Duration
	TLSHandshake    time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

// DefaultHTTPConfig returns conservative transport settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:             30 * time.Second,
		DialTimeout:         5 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshake:        5 * time.Second,
		ResponseHeader:      20 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
	}
}

// NewHTTPClient builds an *http.Client from cfg.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}
	return &http.Client{Transport: tr, Timeout: cfg.Timeout}
}
