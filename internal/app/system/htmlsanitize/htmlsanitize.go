// Package htmlsanitize cleans CMS rich text before it is stored and again
// before it is rendered. Tour content comes from an editor that emits
// headings, lists, tables, images and video embeds.
package htmlsanitize

import (
	"html"
	"html/template"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich     *bluemonday.Policy
	richOnce sync.Once

	strict     *bluemonday.Policy
	strictOnce sync.Once
)

// embedSrc limits iframes to video hosts used for tour clips.
var embedSrc = regexp.MustCompile(`^https://(www\.)?(youtube\.com|youtube-nocookie\.com|player\.vimeo\.com)/`)

func richPolicy() *bluemonday.Policy {
	richOnce.Do(func() {
		rich = bluemonday.UGCPolicy()

		rich.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "figure", "figcaption")
		rich.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
		rich.AllowAttrs("class").OnElements("table", "th", "td", "tr", "figure")
		rich.AllowElements("u", "s", "sub", "sup", "mark")

		rich.AllowImages()
		rich.AllowAttrs("loading").Matching(regexp.MustCompile(`^(lazy|eager)$`)).OnElements("img")

		rich.AllowElements("iframe")
		rich.AllowAttrs("src").Matching(embedSrc).OnElements("iframe")
		rich.AllowAttrs("width", "height", "allowfullscreen", "title").OnElements("iframe")

		// external links open in a new tab and never pass the opener
		rich.AddTargetBlankToFullyQualifiedLinks(true)
		rich.RequireNoReferrerOnFullyQualifiedLinks(true)
	})
	return rich
}

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Sanitize cleans rich text, keeping safe formatting, images and video embeds.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richPolicy().Sanitize(s)
}

// StripTags removes all markup. Used for titles, short descriptions and
// other fields that are rendered as plain text. Entities are decoded so the
// template engine escapes the text exactly once.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy().Sanitize(s)))
}

// IsPlainText reports whether content has no markup.
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// PlainTextToHTML escapes text and turns blank-line separated blocks into
// paragraphs and single newlines into <br>.
func PlainTextToHTML(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(template.HTMLEscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

// PrepareForDisplay returns content as template.HTML, converting plain
// text and sanitizing markup.
func PrepareForDisplay(content string) template.HTML {
	if content == "" {
		return ""
	}
	if IsPlainText(content) {
		return template.HTML(PlainTextToHTML(content))
	}
	return template.HTML(Sanitize(content))
}

// Excerpt returns at most n runes of the text inside content, cut at a
// word boundary and suffixed with "…" when shortened. Used for meta
// descriptions and card blurbs.
func Excerpt(content string, n int) string {
	text := strings.Join(strings.Fields(StripTags(content)), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)[:n]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
