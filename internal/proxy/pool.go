// Package proxy maintains the set of validated relays the fetcher routes
// requests through, and the offline run that discovers and revalidates them.
package proxy

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// Pool serves relays chosen uniformly at random. Reads are safe for
// concurrent use; Replace takes the write lock.
type Pool struct {
	mu        sync.RWMutex
	endpoints []types.ProxyEndpoint
	intn      func(n int) int
	logger    *slog.Logger
}

// NewPool creates an empty Pool.
func NewPool(logger *slog.Logger) *Pool {
	return &Pool{
		intn:   rand.IntN,
		logger: logger.With("component", "proxy_pool"),
	}
}

// Replace swaps the loaded set for endpoints.
func (p *Pool) Replace(endpoints []types.ProxyEndpoint) {
	cp := make([]types.ProxyEndpoint, len(endpoints))
	copy(cp, endpoints)

	p.mu.Lock()
	p.endpoints = cp
	p.mu.Unlock()

	p.logger.Info("proxy pool loaded", "count", len(cp))
}

// Choose returns a uniformly random endpoint, or ErrEmptyPool.
func (p *Pool) Choose() (types.ProxyEndpoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.endpoints) == 0 {
		return types.ProxyEndpoint{}, types.ErrEmptyPool
	}
	ep := p.endpoints[p.intn(len(p.endpoints))]
	p.logger.Debug("proxy chosen", "proxy", ep.Addr())
	return ep, nil
}

// Len returns the number of loaded endpoints.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}

// Endpoints returns a copy of the loaded set.
func (p *Pool) Endpoints() []types.ProxyEndpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]types.ProxyEndpoint, len(p.endpoints))
	copy(cp, p.endpoints)
	return cp
}

// LoadFile loads the pool from the persisted endpoint file.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	endpoints, err := Load(f, p.logger)
	if err != nil {
		return fmt.Errorf("read proxy file %s: %w", path, err)
	}
	p.Replace(endpoints)
	return nil
}

// Load parses "ip port" records, one per line. Malformed lines are logged
// and skipped; only a read failure is returned as an error.
func Load(r io.Reader, logger *slog.Logger) ([]types.ProxyEndpoint, error) {
	var endpoints []types.ProxyEndpoint

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ep, err := types.ParseProxyLine(line)
		if err != nil {
			logger.Warn("skipping malformed proxy line", "line", lineNo, "text", line, "error", err)
			continue
		}
		endpoints = append(endpoints, ep)
	}
	if err := scanner.Err(); err != nil {
		return endpoints, err
	}
	return endpoints, nil
}

// Persist writes endpoints to path. An existing file is first renamed to
// path+backupSuffix so the previous set survives a bad run.
func Persist(path, backupSuffix string, endpoints []types.ProxyEndpoint) error {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		if err := os.Rename(path, path+backupSuffix); err != nil {
			return fmt.Errorf("backup proxy file: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create proxy file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, ep := range endpoints {
		if _, err := fmt.Fprintln(w, ep.Line()); err != nil {
			f.Close()
			return fmt.Errorf("write proxy file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush proxy file: %w", err)
	}
	return f.Close()
}
