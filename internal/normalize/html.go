package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// entityReplacer decodes the HTML entities that routinely leak into chapter
// text even when no tags are present.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"&amp;", "&",
)

// containsHTML reports whether a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// stripHTML converts HTML fragments to markdown and decodes stray entities.
// Input without HTML passes through with only entity decoding.
func stripHTML(s string) string {
	if containsHTML(s) {
		if markdown, err := htmltomarkdown.ConvertString(s); err == nil {
			s = strings.TrimSpace(markdown)
		}
	}
	return entityReplacer.Replace(s)
}
