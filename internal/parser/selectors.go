package parser

import "github.com/andybalholm/cascadia"

// Selectors are compiled once at start-up; a malformed pattern panics
// before any page is fetched.
var (
	tagIndexLinks = cascadia.MustCompile("table.tagCol a")

	paginatorBox = cascadia.MustCompile("div.paginator")
	subjectItem  = cascadia.MustCompile("li.subject-item")
	firstHeading = cascadia.MustCompile("h2")
	anyAnchor    = cascadia.MustCompile("a")

	titleHeading = cascadia.MustCompile("h1")
	titleSpan    = cascadia.MustCompile("span")

	infoBox   = cascadia.MustCompile("div#info")
	infoLabel = cascadia.MustCompile("span.pl")

	ratingWrap   = cascadia.MustCompile("div.rating_wrap.clearbox")
	ratingNum    = cascadia.MustCompile("strong.ll.rating_num")
	ratingPeople = cascadia.MustCompile("a.rating_people")
	ratingSelf   = cascadia.MustCompile("div.rating_self.clearfix")

	relatedBox = cascadia.MustCompile("div.related_info")
	reportBox  = cascadia.MustCompile("div#link-report")
	introBlock = cascadia.MustCompile("div.intro")
	idDiv      = cascadia.MustCompile("div[id]")
)
