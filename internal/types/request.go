package types

import (
	"fmt"
	"net/url"
	"time"
)

// Page kinds, used for logging and metrics labels.
const (
	PageRoot  = "root"
	PageTag   = "tag"
	PageBook  = "book"
	PageProxy = "proxy_source"
)

// Request represents a single page fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Referrer is sent as the Referer header. Empty means none.
	Referrer string

	// Kind categorizes this request (root, tag, book, proxy_source).
	Kind string

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a GET request for rawURL carrying the given referrer.
func NewRequest(rawURL, referrer string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}

	return &Request{
		URL:       u,
		Referrer:  referrer,
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
