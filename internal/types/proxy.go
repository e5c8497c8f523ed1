package types

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ProxyEndpoint is a relay the fetcher can route requests through.
// Values are treated as immutable once validated.
type ProxyEndpoint struct {
	IP           string
	Port         int
	Scheme       string
	LastVerified string
	Anonymity    string
	Geo          string
	Source       string
}

// ParseProxyLine parses a whitespace-delimited "ip port" record.
func ParseProxyLine(line string) (ProxyEndpoint, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return ProxyEndpoint{}, fmt.Errorf("want 2 fields, got %d", len(fields))
	}
	return NewProxyEndpoint(fields[0], fields[1])
}

// NewProxyEndpoint validates ip and port and returns an http endpoint.
func NewProxyEndpoint(ip, port string) (ProxyEndpoint, error) {
	ip = strings.TrimSpace(ip)
	if net.ParseIP(ip) == nil {
		return ProxyEndpoint{}, fmt.Errorf("invalid ip %q", ip)
	}
	p, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return ProxyEndpoint{}, fmt.Errorf("invalid port %q: %w", port, err)
	}
	if p < 1 || p > 65535 {
		return ProxyEndpoint{}, fmt.Errorf("port %d out of range", p)
	}
	return ProxyEndpoint{IP: ip, Port: p, Scheme: "http"}, nil
}

// Addr returns host:port.
func (p ProxyEndpoint) Addr() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// URL returns the relay URL for use as an http.Transport proxy. Relays
// are always dialed over plain http; the advertised scheme only says
// which targets the relay can tunnel.
func (p ProxyEndpoint) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: p.Addr()}
}

// Line renders the endpoint in the persisted "ip port" form.
func (p ProxyEndpoint) Line() string {
	return fmt.Sprintf("%s %d", p.IP, p.Port)
}

func (p ProxyEndpoint) String() string {
	return p.Addr()
}
