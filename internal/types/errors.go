package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyPool         = errors.New("proxy pool is empty")
	ErrPaginatorNotFound = errors.New("paginator not found")
	ErrEmptyResponse     = errors.New("empty response body")
	ErrBodyTooLarge      = errors.New("response body exceeds size limit")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrNoBookID          = errors.New("book id is empty")
)

// FetchKind classifies a fetch failure.
type FetchKind int

const (
	// FetchNetwork covers DNS, connect, relay and transport failures.
	FetchNetwork FetchKind = iota
	// FetchHTTPStatus is a response with a non-2xx status.
	FetchHTTPStatus
	// FetchDecodeText is a body that could not be decoded or is not text.
	FetchDecodeText
)

func (k FetchKind) String() string {
	switch k {
	case FetchNetwork:
		return "network"
	case FetchHTTPStatus:
		return "http_status"
	case FetchDecodeText:
		return "decode_text"
	default:
		return "unknown"
	}
}

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	Kind       FetchKind
	StatusCode int
	Proxy      string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error (%s) for %s (status %d): %v", e.Kind, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error (%s) for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchKindOf reports the kind of a fetch failure anywhere in err's chain.
func FetchKindOf(err error) (FetchKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
