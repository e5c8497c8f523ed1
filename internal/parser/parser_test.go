package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/net/html"

	"github.com/shadowDragonCloud/rosario/internal/observability"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// --- Root and tag pages ---

func TestCategories(t *testing.T) {
	got, err := newTestExtractor().Categories(makeResp("https://book.douban.com/tag/", rootHTML))
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	want := []string{"/tag/小说", "/tag/外国文学", "/tag/漫画", "/tag/小说"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("categories = %v, want %v", got, want)
	}
}

func TestCategoriesEmptyPage(t *testing.T) {
	got, err := newTestExtractor().Categories(makeResp("https://book.douban.com/tag/", "<html><body></body></html>"))
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("categories = %v, want none", got)
	}
}

func TestMaxPageCount(t *testing.T) {
	n, err := newTestExtractor().MaxPageCount(makeResp("https://book.douban.com/tag/fiction", tagHTML))
	if err != nil {
		t.Fatalf("MaxPageCount: %v", err)
	}
	if n != 50 {
		t.Errorf("page count = %d, want 50", n)
	}
}

func TestMaxPageCountKeepsLastParsed(t *testing.T) {
	page := `<div class="paginator"><a>2</a><a>50</a><a>3</a><a>后页</a><span><a>99</a></span></div>`
	n, err := newTestExtractor().MaxPageCount(makeResp("https://book.douban.com/tag/x", page))
	if err != nil {
		t.Fatalf("MaxPageCount: %v", err)
	}
	if n != 3 {
		t.Errorf("page count = %d, want 3 (last parsed direct child)", n)
	}
}

func TestMaxPageCountWarnsOnNonNumericAnchor(t *testing.T) {
	metrics := observability.NewMetrics(testLogger)
	x := NewExtractor(testLogger, metrics)

	page := `<div class="paginator"><a>1</a><a>2</a><a>后页</a></div>`
	n, err := x.MaxPageCount(makeResp("https://book.douban.com/tag/x", page))
	if err != nil {
		t.Fatalf("MaxPageCount: %v", err)
	}
	if n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}
	if got := testutil.ToFloat64(metrics.FieldWarnings.WithLabelValues("paginator")); got != 1 {
		t.Errorf("paginator warnings = %v, want 1", got)
	}
}

func TestMaxPageCountWithoutAnchors(t *testing.T) {
	page := `<div class="paginator"><span class="thispage">1</span></div>`
	n, err := newTestExtractor().MaxPageCount(makeResp("https://book.douban.com/tag/x", page))
	if err != nil {
		t.Fatalf("MaxPageCount: %v", err)
	}
	if n != 0 {
		t.Errorf("page count = %d, want 0", n)
	}
}

func TestMaxPageCountNoPaginator(t *testing.T) {
	_, err := newTestExtractor().MaxPageCount(makeResp("https://book.douban.com/tag/x", "<html><body>nothing</body></html>"))
	if !errors.Is(err, types.ErrPaginatorNotFound) {
		t.Fatalf("err = %v, want ErrPaginatorNotFound", err)
	}
}

func TestBookList(t *testing.T) {
	got, err := newTestExtractor().BookList(makeResp("https://book.douban.com/tag/fiction", tagHTML))
	if err != nil {
		t.Fatalf("BookList: %v", err)
	}
	want := []string{
		"https://book.douban.com/subject/4913064/",
		"https://book.douban.com/subject/1008145/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("book list = %v, want %v", got, want)
	}
}

// --- Book page ---

func TestBookFullPage(t *testing.T) {
	rec, err := newTestExtractor().Book(makeResp(bookURL, bookHTML))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	strs := []struct {
		name, got, want string
	}{
		{"title", rec.Title, "活着"},
		{"location", rec.Location, bookURL},
		{"origin title", rec.OriginTitle, "To Live"},
		{"subtitle", rec.Subtitle, ""},
		{"press", rec.Press, "作家出版社"},
		{"producer", rec.Producer, "新经典文化"},
		{"publication year", rec.PublicationYear, "2012-8-1"},
		{"page count", rec.PageCount, "191"},
		{"price", rec.Price, "20.00元"},
		{"binding", rec.Binding, "平装"},
		{"series", rec.Series, "余华作品（2012版）"},
		{"isbn", rec.ISBN, "9787506365437"},
		{"content intro", rec.ContentIntro, "《活着》讲述了农村人福贵悲惨的人生遭遇。\n福贵本是个阔少爷。"},
		{"author intro", rec.AuthorIntro, "余华，1960年生，浙江海盐人。\n著有《兄弟》等。"},
		{"directory", rec.DirectoryText, "中文版自序\n韩文版自序\n活着"},
	}
	for _, s := range strs {
		if s.got != s.want {
			t.Errorf("%s = %q, want %q", s.name, s.got, s.want)
		}
	}

	if !reflect.DeepEqual(rec.Authors, []string{"余华"}) {
		t.Errorf("authors = %v", rec.Authors)
	}
	if !reflect.DeepEqual(rec.Translators, []string{"白睿", "叶琳"}) {
		t.Errorf("translators = %v", rec.Translators)
	}

	wantScore := types.Score{
		Average:      9.4,
		RatingCount:  697325,
		FiveStarPct:  73.2,
		FourStarPct:  21.6,
		ThreeStarPct: 4.6,
		TwoStarPct:   0.4,
		OneStarPct:   0.2,
	}
	if rec.Score != wantScore {
		t.Errorf("score = %+v, want %+v", rec.Score, wantScore)
	}
}

func TestBookMissingSections(t *testing.T) {
	rec, err := newTestExtractor().Book(makeResp(bookURL, "<html><body><p>blocked</p></body></html>"))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.Title != "" || rec.Press != "" || len(rec.Authors) != 0 {
		t.Errorf("expected an empty record, got %+v", rec)
	}
	if rec.Score != (types.Score{}) {
		t.Errorf("score = %+v, want zero", rec.Score)
	}
	if rec.Location != bookURL {
		t.Errorf("location = %q", rec.Location)
	}
}

func TestBookBadRatingNumbers(t *testing.T) {
	page := `<div class="rating_wrap clearbox">
  <div class="rating_self clearfix">
    <strong class="ll rating_num "> </strong>
    <a class="rating_people"><span>目前无人评价</span></a>
  </div>
  <span>5星</span><span>10%</span>
</div>`
	rec, err := newTestExtractor().Book(makeResp(bookURL, page))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.Score.Average != 0 || rec.Score.RatingCount != 0 {
		t.Errorf("bad numbers must leave zero, got %+v", rec.Score)
	}
	if rec.Score.FiveStarPct != 10 {
		t.Errorf("five star = %v, want 10 despite bad header numbers", rec.Score.FiveStarPct)
	}
}

func TestRelatedInfoWithoutReport(t *testing.T) {
	page := `<div class="related_info">
  <div class="indent"><div class="intro"><p>content</p></div></div>
  <div class="indent"><div class="intro"><p>author</p></div></div>
</div>`
	rec, err := newTestExtractor().Book(makeResp(bookURL, page))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.ContentIntro != "content" || rec.AuthorIntro != "author" {
		t.Errorf("content = %q, author = %q", rec.ContentIntro, rec.AuthorIntro)
	}
}

func TestRelatedInfoSkipsEveryReportIntro(t *testing.T) {
	page := `<div class="related_info">
  <div id="link-report">
    <span class="short"><div class="intro"><p>content short</p><p>(展开全部)</p></div></span>
    <span class="all hidden"><div class="intro"><p>content full</p></div></span>
  </div>
  <div class="indent">
    <span class="short"><div class="intro"><p>author short</p><p>(展开全部)</p></div></span>
    <span class="all hidden"><div class="intro"><p>author full</p></div></span>
  </div>
</div>`
	rec, err := newTestExtractor().Book(makeResp(bookURL, page))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.ContentIntro != "content short\n(展开全部)" {
		t.Errorf("content = %q", rec.ContentIntro)
	}
	if rec.AuthorIntro != "author full" {
		t.Errorf("author = %q, want the full copy listed last", rec.AuthorIntro)
	}
}

func TestRelatedInfoWithoutReportTakesLastAuthorIntro(t *testing.T) {
	page := `<div class="related_info">
  <div class="indent"><div class="intro"><p>content</p></div></div>
  <div class="indent">
    <span class="short"><div class="intro"><p>author short</p></div></span>
    <span class="all hidden"><div class="intro"><p>author full</p></div></span>
  </div>
</div>`
	rec, err := newTestExtractor().Book(makeResp(bookURL, page))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.ContentIntro != "content" || rec.AuthorIntro != "author full" {
		t.Errorf("content = %q, author = %q", rec.ContentIntro, rec.AuthorIntro)
	}
}

func TestDirectoryLookupByAttribute(t *testing.T) {
	page := `<div class="related_info">
  <div id="dir_999_full">other book</div>
  <div id="dir_a.b_full">dotted id</div>
</div>`
	rec, err := newTestExtractor().Book(makeResp("https://book.douban.com/subject/a.b/", page))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.DirectoryText != "dotted id" {
		t.Errorf("directory = %q, want the section keyed by this book's id", rec.DirectoryText)
	}
}

// --- Sibling walks ---

func parseFragment(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	return doc
}

func findLabel(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "span" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findLabel(c); found != nil {
			return found
		}
	}
	return nil
}

func TestAccumulatorStopsAtBreak(t *testing.T) {
	doc := parseFragment(t, `<div><span class="pl">作者</span><a>A</a> / <a>B</a><br/>after<a>C</a></div>`)
	label := findLabel(doc)
	if label == nil {
		t.Fatal("label not found")
	}

	got := accumulateAfter(label)
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("values = %v, want [A B]", got)
	}
}

func TestAccumulatorOrdersAnchorsFirst(t *testing.T) {
	doc := parseFragment(t, `<div><span>丛书</span> plain <a>linked</a> more <em>ignored</em><br/></div>`)
	got := accumulateAfter(findLabel(doc))
	want := []string{"linked", "plain", "more"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
}

func TestAccumulatorStateMachine(t *testing.T) {
	var acc FieldAccumulator
	if acc.State() != Collecting {
		t.Fatalf("initial state = %v", acc.State())
	}
	if !acc.Feed(&html.Node{Type: html.TextNode, Data: "x"}) {
		t.Error("text should keep collecting")
	}
	br := parseFragment(t, "<br>")
	var brNode *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "br" {
			brNode = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(br)
	if acc.Feed(brNode) {
		t.Error("br should stop the accumulator")
	}
	if acc.State() != Stopped {
		t.Errorf("state = %v, want Stopped", acc.State())
	}
	if acc.Feed(&html.Node{Type: html.TextNode, Data: "late"}) {
		t.Error("stopped accumulator accepted a node")
	}
	if !reflect.DeepEqual(acc.Values(), []string{"x"}) {
		t.Errorf("values = %v", acc.Values())
	}
}

func TestScoreWalker(t *testing.T) {
	var s types.Score
	w := NewScoreWalker(&s)
	for _, text := range []string{"5星", "83.2%", "4星", "12.1%"} {
		w.Feed(text)
	}
	if s.FiveStarPct != 83.2 || s.FourStarPct != 12.1 {
		t.Errorf("score = %+v", s)
	}
	if len(w.Dropped()) != 0 {
		t.Errorf("dropped = %v", w.Dropped())
	}
}

func TestScoreWalkerDropsOnlyBadPair(t *testing.T) {
	var s types.Score
	w := NewScoreWalker(&s)
	for _, text := range []string{"5星", "83.2%", "6星", "1.0%", "  ", "4星", "12.1%", "3星", "n/a", "2星", "0.5%"} {
		w.Feed(text)
	}
	if s.FiveStarPct != 83.2 || s.FourStarPct != 12.1 || s.TwoStarPct != 0.5 {
		t.Errorf("valid pairs lost: %+v", s)
	}
	if s.ThreeStarPct != 0 {
		t.Errorf("three star = %v, want 0 after bad value", s.ThreeStarPct)
	}
	if len(w.Dropped()) != 2 {
		t.Errorf("dropped %d pairs, want 2: %v", len(w.Dropped()), w.Dropped())
	}
	if w.State() != ExpectLabel {
		t.Errorf("state = %v, want ExpectLabel", w.State())
	}
}

// --- Cleaning ---

func TestDeriveBookID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://site/subject/1234567/", "1234567"},
		{"https://book.douban.com/subject/4913064", "4913064"},
		{"", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := DeriveBookID(tt.in); got != tt.want {
			t.Errorf("DeriveBookID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanLabel(t *testing.T) {
	if CleanLabel("作者:") != "作者" || CleanLabel(" 作者 ") != "作者" {
		t.Errorf("CleanLabel: %q %q", CleanLabel("作者:"), CleanLabel(" 作者 "))
	}
	for _, in := range []string{`"出版社:"`, " ISBN: ", "页数", "原作名：", ""} {
		once := CleanLabel(in)
		if twice := CleanLabel(once); twice != once {
			t.Errorf("CleanLabel not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct{ in, want string }{
		{"\u00a0", ""},
		{" / ", ""},
		{":\n        ", ""},
		{" 2012-8-1", "2012-8-1"},
		{`"20.00元"`, "20.00元"},
		{`To\nLive`, "ToLive"},
		{"\u00a0余华作品\u00a0", "余华作品"},
		{"CNY 39.80", "CNY 39.80"},
	}
	for _, tt := range tests {
		if got := CleanValue(tt.in); got != tt.want {
			t.Errorf("CleanValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanDirectory(t *testing.T) {
	lines := []string{"  (第一章)  ", "收起", "\t· 第二章 ·", "", "· · · · · ·", " 收起 "}
	got := CleanDirectory(lines)
	if got != "第一章\n第二章" {
		t.Errorf("directory = %q", got)
	}
}

func TestBasicInfoTableCoversLabels(t *testing.T) {
	labels := []string{"原作名", "副标题", "作者", "译者", "出版社", "出品方", "出版年", "页数", "定价", "装帧", "丛书", "isbn", "ISBN", "统一书号"}
	for _, l := range labels {
		if _, ok := basicInfoFields[l]; !ok {
			t.Errorf("label %q has no field", l)
		}
	}
	if len(basicInfoFields) != len(labels) {
		t.Errorf("table has %d entries, want %d", len(basicInfoFields), len(labels))
	}
}
