package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// Book builds a record from a book page. The passes are independent; each
// one leaves its fields at their defaults when its part of the page is
// missing.
func (e *Extractor) Book(resp *types.Response) (*types.BookRecord, error) {
	doc, err := e.document(resp)
	if err != nil {
		return nil, err
	}

	rec := types.NewBookRecord(resp.Location())
	e.title(doc, rec)
	e.basicInfo(doc, rec)
	e.score(doc, rec)
	e.relatedInfo(doc, rec)
	return rec, nil
}

func (e *Extractor) title(doc *goquery.Document, rec *types.BookRecord) {
	span := doc.FindMatcher(titleHeading).First().FindMatcher(titleSpan).First()
	if span.Length() == 0 {
		e.warn("title", "title not found", "url", rec.Location)
		return
	}
	if t, ok := firstText(span.Get(0)); ok {
		rec.Title = strings.TrimSpace(t)
	}
}

func (e *Extractor) basicInfo(doc *goquery.Document, rec *types.BookRecord) {
	box := doc.FindMatcher(infoBox).First()
	if box.Length() == 0 {
		e.warn("basic_info", "info block not found", "url", rec.Location)
		return
	}

	box.FindMatcher(infoLabel).Each(func(_ int, label *goquery.Selection) {
		key := CleanLabel(label.Text())
		if key == "" {
			e.warn("basic_info", "empty label", "url", rec.Location)
			return
		}

		values := accumulateAfter(label.Get(0))
		e.logger.Debug("basic info", "key", key, "values", values)

		set, ok := basicInfoFields[key]
		if !ok {
			e.warn("basic_info", "unmapped label", "key", key, "values", values, "url", rec.Location)
			return
		}
		if len(values) == 0 {
			e.warn("basic_info", "label without value", "key", key, "url", rec.Location)
			return
		}
		set(rec, values)
	})
}

func (e *Extractor) score(doc *goquery.Document, rec *types.BookRecord) {
	wrap := doc.FindMatcher(ratingWrap).First()
	if wrap.Length() == 0 {
		e.warn("score", "rating block not found", "url", rec.Location)
		return
	}

	if text, ok := matchedText(wrap, ratingNum); !ok {
		e.warn("score", "average rating not found", "url", rec.Location)
	} else if v, err := strconv.ParseFloat(text, 64); err != nil {
		e.warn("score", "bad average rating", "text", text, "error", err, "url", rec.Location)
	} else {
		rec.Score.Average = v
	}

	if text, ok := matchedText(wrap, ratingPeople); !ok {
		e.warn("score", "rating count not found", "url", rec.Location)
	} else if n, err := strconv.Atoi(text); err != nil {
		e.warn("score", "bad rating count", "text", text, "error", err, "url", rec.Location)
	} else {
		rec.Score.RatingCount = n
	}

	self := wrap.FindMatcher(ratingSelf).First()
	if self.Length() == 0 {
		e.warn("score", "star distribution not found", "url", rec.Location)
		return
	}
	w := NewScoreWalker(&rec.Score)
	walkStars(self.Get(0), w)
	for _, err := range w.Dropped() {
		e.warn("score", "dropped star pair", "error", err, "url", rec.Location)
	}
}

// walkStars feeds the text of every element following anchor into w.
func walkStars(anchor *html.Node, w *ScoreWalker) {
	for s := anchor.NextSibling; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}
		for _, t := range textNodes(s) {
			w.Feed(t)
		}
	}
}

// matchedText returns the first non-blank text under the first match of m.
func matchedText(sel *goquery.Selection, m goquery.Matcher) (string, bool) {
	match := sel.FindMatcher(m).First()
	if match.Length() == 0 {
		return "", false
	}
	t, ok := firstText(match.Get(0))
	return strings.TrimSpace(t), ok
}
