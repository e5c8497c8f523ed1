package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// relatedInfo fills the intros and the directory. The content intro is the
// first intro of the report block. Once the report's intros are skipped,
// the last remaining intro of the outer block is the author intro; a long
// author intro is listed twice, short copy first. Without a report block
// the first outer intro is the content intro.
func (e *Extractor) relatedInfo(doc *goquery.Document, rec *types.BookRecord) {
	box := doc.FindMatcher(relatedBox).First()
	if box.Length() == 0 {
		e.warn("related_info", "related info block not found", "url", rec.Location)
		return
	}

	intros := box.FindMatcher(introBlock)
	consumed := 0

	if report := box.FindMatcher(reportBox).First(); report.Length() > 0 {
		reportIntros := report.FindMatcher(introBlock)
		if reportIntros.Length() > 0 {
			rec.ContentIntro = introText(reportIntros.First())
		} else {
			e.warn("related_info", "report block without intro", "url", rec.Location)
		}
		consumed = reportIntros.Length()
	} else if intros.Length() > 0 {
		rec.ContentIntro = introText(intros.First())
		consumed = 1
	}

	if rest := intros.Slice(min(consumed, intros.Length()), intros.Length()); rest.Length() > 0 {
		rec.AuthorIntro = introText(rest.Last())
	}

	e.directory(box, rec)
}

func (e *Extractor) directory(box *goquery.Selection, rec *types.BookRecord) {
	id := DeriveBookID(rec.Location)
	if id == "" {
		e.warn("related_info", "no book id for directory lookup", "url", rec.Location)
		return
	}

	// The id comes from the URL, so it is compared as an attribute value
	// instead of being spliced into a selector.
	want := "dir_" + id + "_full"
	dir := box.FindMatcher(idDiv).FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == want
	}).First()
	if dir.Length() == 0 {
		e.logger.Debug("no directory section", "id", want, "url", rec.Location)
		return
	}
	rec.DirectoryText = CleanDirectory(textNodes(dir.Get(0)))
}

func introText(s *goquery.Selection) string {
	return joinLines(textNodes(s.Get(0)))
}
