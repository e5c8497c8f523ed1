package parser

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const directoryCollapsed = "收起"

var valueArtifacts = strings.NewReplacer(
	"&;nbsp", "",
	"/", "",
	`\n`, "",
	"\u00a0", "",
	"\n", "",
)

// CleanLabel turns the text of a label marker into a field key. It is
// idempotent and ignores surrounding quotes, colons and whitespace.
func CleanLabel(s string) string {
	s = strings.Trim(s, `":`)
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, "：", "")
	return strings.TrimSpace(s)
}

// CleanValue strips markup artifacts from one piece of a field value.
func CleanValue(s string) string {
	s = valueArtifacts.Replace(s)
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '"' || r == ':' || unicode.IsSpace(r)
	})
}

// CleanDirectory trims every line, drops blanks and the collapse marker
// and joins the rest with newlines.
func CleanDirectory(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimFunc(strings.TrimSpace(line), isDirectoryNoise)
		if line == "" || line == directoryCollapsed {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isDirectoryNoise(r rune) bool {
	switch r {
	case '\n', '\t', ' ', '(', ')', '·':
		return true
	}
	return false
}

// joinLines trims every line, drops blanks and joins the rest with
// newlines.
func joinLines(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// DeriveBookID returns the last non-empty path segment of a book URL.
func DeriveBookID(location string) string {
	segments := strings.Split(location, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// textNodes returns the text of every text node under n in document order.
func textNodes(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// firstText returns the first text node under n that is not blank.
func firstText(n *html.Node) (string, bool) {
	for _, t := range textNodes(n) {
		if strings.TrimSpace(t) != "" {
			return t, true
		}
	}
	return "", false
}
