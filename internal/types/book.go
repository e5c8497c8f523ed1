package types

import (
	"strconv"
	"strings"
	"time"
)

// Score is the aggregate rating block of a book page.
type Score struct {
	Average      float64 `json:"average"        bson:"average"`
	RatingCount  int     `json:"rating_count"   bson:"rating_count"`
	FiveStarPct  float64 `json:"five_star_pct"  bson:"five_star_pct"`
	FourStarPct  float64 `json:"four_star_pct"  bson:"four_star_pct"`
	ThreeStarPct float64 `json:"three_star_pct" bson:"three_star_pct"`
	TwoStarPct   float64 `json:"two_star_pct"   bson:"two_star_pct"`
	OneStarPct   float64 `json:"one_star_pct"   bson:"one_star_pct"`
}

// BookRecord is the structured result of one book page. It is filled by
// independent extraction passes and not modified after it is handed to a
// store.
type BookRecord struct {
	Title             string    `json:"title"               bson:"title"`
	Location          string    `json:"location"            bson:"location"`
	OriginTitle       string    `json:"origin_title"        bson:"origin_title"`
	Subtitle          string    `json:"subtitle"            bson:"subtitle"`
	Authors           []string  `json:"authors"             bson:"authors"`
	Translators       []string  `json:"translators"         bson:"translators"`
	Press             string    `json:"press"               bson:"press"`
	Producer          string    `json:"producer"            bson:"producer"`
	PublicationYear   string    `json:"publication_year"    bson:"publication_year"`
	PageCount         string    `json:"page_count"          bson:"page_count"`
	Price             string    `json:"price"               bson:"price"`
	Binding           string    `json:"binding"             bson:"binding"`
	Series            string    `json:"series"              bson:"series"`
	ISBN              string    `json:"isbn"                bson:"isbn"`
	UnifiedBookNumber string    `json:"unified_book_number" bson:"unified_book_number"`
	Score             Score     `json:"score"               bson:"score"`
	ContentIntro      string    `json:"content_intro"       bson:"content_intro"`
	AuthorIntro       string    `json:"author_intro"        bson:"author_intro"`
	DirectoryText     string    `json:"directory_text"      bson:"directory_text"`
	ScrapedAt         time.Time `json:"scraped_at"          bson:"scraped_at"`
}

// NewBookRecord creates an empty record for the page at location.
func NewBookRecord(location string) *BookRecord {
	return &BookRecord{
		Location:  location,
		ScrapedAt: time.Now(),
	}
}

// Render returns the plain-text layout used for on-disk records.
func (b *BookRecord) Render() string {
	var sb strings.Builder
	line := func(label, value string) {
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteByte('\n')
	}

	line("书名", b.Title)
	line("URL", b.Location)
	line("原作名", b.OriginTitle)
	line("副标题", b.Subtitle)
	line("作者", strings.Join(b.Authors, ", "))
	line("译者", strings.Join(b.Translators, ", "))
	line("出版社", b.Press)
	line("出品方", b.Producer)
	line("出版年", b.PublicationYear)
	line("页数", b.PageCount)
	line("定价", b.Price)
	line("装帧", b.Binding)
	line("丛书", b.Series)
	line("isbn", b.ISBN)
	line("统一书号", b.UnifiedBookNumber)

	sb.WriteString("\n")
	sb.WriteString(b.Score.Render())
	sb.WriteString("\n\n")

	sb.WriteString("内容简介:\n")
	sb.WriteString(b.ContentIntro)
	sb.WriteString("\n\n")
	sb.WriteString("作者简介:\n")
	sb.WriteString(b.AuthorIntro)
	sb.WriteString("\n\n")
	sb.WriteString("目录:\n")
	sb.WriteString(b.DirectoryText)
	return sb.String()
}

// Render returns the rating block without a trailing newline.
func (s Score) Render() string {
	lines := []string{
		"评分:",
		"豆瓣评分: " + formatFloat(s.Average),
		"评价人数: " + strconv.Itoa(s.RatingCount),
		"5星: " + formatFloat(s.FiveStarPct),
		"4星: " + formatFloat(s.FourStarPct),
		"3星: " + formatFloat(s.ThreeStarPct),
		"2星: " + formatFloat(s.TwoStarPct),
		"1星: " + formatFloat(s.OneStarPct),
	}
	return strings.Join(lines, "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
