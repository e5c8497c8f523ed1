// Package parser turns catalog pages into category paths, book paths,
// page counts and book records. Field identity on book pages comes from
// label text and sibling position rather than tags, so most of the work
// is walking sibling sequences.
package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shadowDragonCloud/rosario/internal/observability"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// Extractor holds the page extractors. Missing containers and bad
// numbers are logged and leave the output at its default; only an
// unparsable document is returned as an error.
type Extractor struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExtractor creates an Extractor. metrics may be nil.
func NewExtractor(logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		logger:  logger.With("component", "extractor"),
		metrics: metrics,
	}
}

func (e *Extractor) document(resp *types.Response) (*goquery.Document, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Location(), Err: err}
	}
	return doc, nil
}

func (e *Extractor) warn(pass, msg string, args ...any) {
	e.metrics.IncFieldWarning(pass)
	e.logger.Warn(msg, append([]any{"pass", pass}, args...)...)
}

// Categories returns every category href on the index page, in page
// order, duplicates kept.
func (e *Extractor) Categories(resp *types.Response) ([]string, error) {
	doc, err := e.document(resp)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	doc.FindMatcher(tagIndexLinks).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	if len(hrefs) == 0 {
		e.warn("root", "no categories on index page", "url", resp.Location())
	}
	return hrefs, nil
}

// MaxPageCount reads the paginator. Among its direct child anchors the
// last one whose text is an integer wins. A page without a paginator
// yields ErrPaginatorNotFound.
func (e *Extractor) MaxPageCount(resp *types.Response) (int, error) {
	doc, err := e.document(resp)
	if err != nil {
		return 0, err
	}

	box := doc.FindMatcher(paginatorBox).First()
	if box.Length() == 0 {
		return 0, &types.ParseError{URL: resp.Location(), Selector: "div.paginator", Err: types.ErrPaginatorNotFound}
	}

	count := 0
	box.ChildrenFiltered("a").Each(func(_ int, a *goquery.Selection) {
		text, ok := firstText(a.Get(0))
		if !ok {
			e.warn("paginator", "paginator anchor has no text", "url", resp.Location())
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			e.warn("paginator", "skipping non-numeric paginator anchor", "text", strings.TrimSpace(text), "url", resp.Location())
			return
		}
		count = n
	})
	return count, nil
}

// BookList returns the book path of every catalog entry in page order.
func (e *Extractor) BookList(resp *types.Response) ([]string, error) {
	doc, err := e.document(resp)
	if err != nil {
		return nil, err
	}

	var paths []string
	doc.FindMatcher(subjectItem).Each(func(_ int, item *goquery.Selection) {
		a := item.FindMatcher(firstHeading).First().FindMatcher(anyAnchor).First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		title, _ := a.Attr("title")
		if href == "" {
			e.warn("book_list", "catalog entry without href", "title", title, "url", resp.Location())
			return
		}
		e.logger.Debug("found book", "title", title, "href", href)
		paths = append(paths, href)
	})
	return paths, nil
}
