package transform

import (
	"fmt"
	"regexp"
)

// dangerousTags is the fixed denylist of elements stripped from model
// output. Everything else passes through byte-identical.
var dangerousTags = []string{"script", "iframe", "object", "embed", "form"}

var (
	pairedTagPatterns []*regexp.Regexp
	looseTagPatterns  []*regexp.Regexp
	openTagPattern    = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	eventAttrPattern  = regexp.MustCompile(`(?i)\s+on\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
)

func init() {
	for _, tag := range dangerousTags {
		// Paired form including content, then any leftover open, close or
		// self-closing forms.
		pairedTagPatterns = append(pairedTagPatterns,
			regexp.MustCompile(fmt.Sprintf(`(?is)<%s\b[^>]*>.*?</%s\s*>`, tag, tag)))
		looseTagPatterns = append(looseTagPatterns,
			regexp.MustCompile(fmt.Sprintf(`(?is)</?%s\b[^>]*/?>`, tag)))
	}
}

// SanitizeHTML strips the dangerous-tag denylist (both paired and
// self-closing forms) and inline event-handler attributes from HTML. Handler
// attributes are only removed inside opening tags, so prose that happens to
// contain "on...=" text survives. It does not attempt to be a full HTML
// sanitizer: the content comes from our own model prompt, and unrelated
// markup must survive untouched.
func SanitizeHTML(html string) string {
	for _, re := range pairedTagPatterns {
		html = re.ReplaceAllString(html, "")
	}
	for _, re := range looseTagPatterns {
		html = re.ReplaceAllString(html, "")
	}
	return openTagPattern.ReplaceAllStringFunc(html, func(tag string) string {
		return eventAttrPattern.ReplaceAllString(tag, "")
	})
}
