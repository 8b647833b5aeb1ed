package main

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

// Shared client for all outbound calls (regression endpoint, chat
// backend). One timeout covers connect through body read.
var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient applies the configured timeout and
// returns the value actually in effect. Non-positive values keep the
// default.
func ConfigureExternalHTTPClient(seconds int) time.Duration {
	if seconds > 0 {
		externalHTTPClient.Timeout = time.Duration(seconds) * time.Second
	}
	return externalHTTPClient.Timeout
}
