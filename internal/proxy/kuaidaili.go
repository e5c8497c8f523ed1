package proxy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

const kuaidailiBaseURL = "https://www.kuaidaili.com/free/inha/"

var (
	kuaidailiRows      = cascadia.MustCompile("tbody tr")
	kuaidailiIP        = cascadia.MustCompile(`td[data-title="IP"]`)
	kuaidailiPort      = cascadia.MustCompile(`td[data-title="PORT"]`)
	kuaidailiScheme    = cascadia.MustCompile(`td[data-title="类型"]`)
	kuaidailiVerified  = cascadia.MustCompile(`td[data-title="最后验证时间"]`)
	kuaidailiAnonymity = cascadia.MustCompile(`td[data-title="匿名度"]`)
	kuaidailiGeo       = cascadia.MustCompile(`td[data-title="位置"]`)
)

// KuaidailiSource reads the kuaidaili free list, whose cells are keyed by
// a data-title attribute.
type KuaidailiSource struct {
	logger *slog.Logger
}

// NewKuaidailiSource creates the kuaidaili source.
func NewKuaidailiSource(logger *slog.Logger) *KuaidailiSource {
	return &KuaidailiSource{logger: logger.With("component", "kuaidaili")}
}

func (s *KuaidailiSource) Name() string { return "kuaidaili" }

func (s *KuaidailiSource) PageURLs(pages int) []string {
	urls := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		urls = append(urls, fmt.Sprintf("%s%d/", kuaidailiBaseURL, i))
	}
	return urls
}

func (s *KuaidailiSource) Parse(resp *types.Response) ([]types.ProxyEndpoint, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	rows := doc.FindMatcher(kuaidailiRows)
	if rows.Length() == 0 {
		return nil, &types.ParseError{URL: resp.Location(), Selector: "tbody tr", Err: fmt.Errorf("no rows")}
	}

	var out []types.ProxyEndpoint
	rows.Each(func(_ int, row *goquery.Selection) {
		ip, ok := cellText(row, kuaidailiIP)
		if !ok {
			s.logger.Warn("row without IP cell", "url", resp.Location())
			return
		}
		port, ok := cellText(row, kuaidailiPort)
		if !ok {
			s.logger.Warn("row without PORT cell", "url", resp.Location(), "ip", ip)
			return
		}

		ep, err := types.NewProxyEndpoint(ip, port)
		if err != nil {
			s.logger.Warn("skipping row", "url", resp.Location(), "error", err)
			return
		}
		if scheme, ok := cellText(row, kuaidailiScheme); ok && scheme != "" {
			ep.Scheme = strings.ToLower(scheme)
		}
		ep.LastVerified, _ = cellText(row, kuaidailiVerified)
		ep.Anonymity, _ = cellText(row, kuaidailiAnonymity)
		ep.Geo, _ = cellText(row, kuaidailiGeo)
		ep.Source = s.Name()

		out = append(out, ep)
	})

	return out, nil
}

// cellText returns the trimmed text of the first cell matching m.
func cellText(row *goquery.Selection, m goquery.Matcher) (string, bool) {
	cell := row.FindMatcher(m).First()
	if cell.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(cell.Text()), true
}
