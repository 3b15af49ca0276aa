// Package httpfetch exposes the client builder and the per-verb helpers
// most callers need without importing the client package directly.
package httpfetch

import (
	"github.com/adamwoolhether/httpfetch/client"
)

type (
	// Client is an alias of [client.Client].
	Client = client.Client
	// Config is an alias of [client.Config].
	Config = client.Config
	// Envelope is an alias of [client.Envelope].
	Envelope = client.Envelope
	// Callbacks is an alias of [client.Callbacks].
	Callbacks = client.Callbacks
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a zero-timeout http.Client on http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*Client, error) {
	return client.Build(opts...)
}

// Params serializes params into a query string, percent-encoding every
// key and value and keeping empty ones.
func Params(params map[string]any) string {
	return client.Params(params)
}
