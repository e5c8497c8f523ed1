package fetcher

import (
	"net/http"

	"github.com/shadowDragonCloud/rosario/internal/config"
)

const (
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9"
	defaultAcceptEncoding = "gzip, deflate, br"
)

// HeaderProfile is the fixed browser-like header set sent with every page.
type HeaderProfile struct {
	UserAgent      string
	Accept         string
	AcceptEncoding string
	AcceptLanguage string
}

// NewHeaderProfile builds the profile from fetcher config.
func NewHeaderProfile(cfg *config.FetcherConfig) HeaderProfile {
	return HeaderProfile{
		UserAgent:      cfg.UserAgent,
		Accept:         defaultAccept,
		AcceptEncoding: defaultAcceptEncoding,
		AcceptLanguage: cfg.AcceptLanguage,
	}
}

// Apply writes the profile and the referrer onto h.
func (p HeaderProfile) Apply(h http.Header, referrer string) {
	h.Set("User-Agent", p.UserAgent)
	h.Set("Accept", p.Accept)
	h.Set("Accept-Encoding", p.AcceptEncoding)
	if p.AcceptLanguage != "" {
		h.Set("Accept-Language", p.AcceptLanguage)
	}
	h.Set("Connection", "keep-alive")
	if referrer != "" {
		h.Set("Referer", referrer)
	}
}
