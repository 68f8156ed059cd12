// Package htmlsanitize cleans text before it is stored or rendered.
// Visitor fields are reduced to plain text; the configurable site footer may
// keep safe formatting.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	footerPolicy *bluemonday.Policy
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		footerPolicy = bluemonday.UGCPolicy()
		footerPolicy.AllowElements("u", "s", "small", "mark")
		footerPolicy.RequireNoFollowOnLinks(true)

		strictPolicy = bluemonday.StrictPolicy()
	})
	return footerPolicy, strictPolicy
}

// StripTags removes all markup from s and returns plain text with entities
// decoded, trimmed of surrounding whitespace. Templates escape the result on
// output, so decoding here does not reintroduce markup.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	_, strict := policies()
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Sanitize cleans footer HTML, removing dangerous elements and attributes
// while keeping links and basic formatting.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	footer, _ := policies()
	return footer.Sanitize(s)
}

// SanitizeToHTML sanitizes s for direct rendering. Plain text is converted to
// minimal HTML first so line breaks survive.
func SanitizeToHTML(s string) template.HTML {
	if IsPlainText(s) {
		s = PlainTextToHTML(s)
	}
	return template.HTML(Sanitize(s))
}

// IsPlainText checks if content appears to be plain text (no HTML tags).
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// PlainTextToHTML escapes text and converts newlines to <br>.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(text)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}
