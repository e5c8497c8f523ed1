package fetcher

import (
	"context"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch waits for its pacing slot and then retrieves the request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// ProxyChooser hands out a relay per request.
type ProxyChooser interface {
	Choose() (types.ProxyEndpoint, error)
}
