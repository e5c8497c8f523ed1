package proxy

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

const xicidailiBaseURL = "https://www.xicidaili.com/nn/"

// Data rows carry class "odd" or an empty class; the header row has none.
var (
	xicidailiRows  = xpath.MustCompile(`//tr[@class="odd" or @class=""]`)
	xicidailiCells = xpath.MustCompile(`./td`)
)

// Column order of the xicidaili table after the leading country flag.
const (
	xiciColIP = iota + 1
	xiciColPort
	xiciColGeo
	xiciColAnonymity
	xiciColScheme
	xiciColSpeed
	xiciColConnect
	xiciColAlive
	xiciColVerified
)

// XicidailiSource reads the xicidaili high-anonymity list by column
// position.
type XicidailiSource struct {
	logger *slog.Logger
}

// NewXicidailiSource creates the xicidaili source.
func NewXicidailiSource(logger *slog.Logger) *XicidailiSource {
	return &XicidailiSource{logger: logger.With("component", "xicidaili")}
}

func (s *XicidailiSource) Name() string { return "xicidaili" }

func (s *XicidailiSource) PageURLs(pages int) []string {
	urls := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		urls = append(urls, fmt.Sprintf("%s%d", xicidailiBaseURL, i))
	}
	return urls
}

func (s *XicidailiSource) Parse(resp *types.Response) ([]types.ProxyEndpoint, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var out []types.ProxyEndpoint
	for _, row := range htmlquery.QuerySelectorAll(doc, xicidailiRows) {
		cells := htmlquery.QuerySelectorAll(row, xicidailiCells)
		if len(cells) <= xiciColPort {
			s.logger.Warn("row too short", "url", resp.Location(), "cells", len(cells))
			continue
		}

		ep, err := types.NewProxyEndpoint(cellAt(cells, xiciColIP), cellAt(cells, xiciColPort))
		if err != nil {
			s.logger.Warn("skipping row", "url", resp.Location(), "error", err)
			continue
		}
		if scheme := cellAt(cells, xiciColScheme); scheme != "" {
			ep.Scheme = strings.ToLower(scheme)
		}
		ep.Geo = cellAt(cells, xiciColGeo)
		ep.Anonymity = cellAt(cells, xiciColAnonymity)
		ep.LastVerified = cellAt(cells, xiciColVerified)
		ep.Source = s.Name()

		out = append(out, ep)
	}

	return out, nil
}

func cellAt(cells []*html.Node, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(cells[i]))
}
