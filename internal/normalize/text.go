// Package normalize cleans raw chapter text of markdown, encoding, and
// punctuation artifacts before segmentation.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Markdown structure.
	headerRe        = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	boldRe          = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe        = regexp.MustCompile(`\*([^*]+)\*`)
	boldUnderRe     = regexp.MustCompile(`__([^_]+)__`)
	italicUnderRe   = regexp.MustCompile(`_([^_]+)_`)
	strikethroughRe = regexp.MustCompile(`~~([^~]+)~~`)
	inlineCodeRe    = regexp.MustCompile("`([^`]+)`")
	linkRe          = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)

	// Stray emphasis markers: asterisk runs isolated between whitespace or
	// dangling at the text edges. Intentional pairs survive this pass and are
	// consumed by the markdown pass instead.
	isolatedAsteriskRe = regexp.MustCompile(`(^|[ \t\n])\*+([ \t\n]|$)`)

	// Punctuation artifacts.
	quotedPeriodRe = regexp.MustCompile(`([.!?]")\.`)
	dashRunRe      = regexp.MustCompile(`-{2,}`)
	emDashSpaceRe  = regexp.MustCompile(`[ \t]*\x{2014}[ \t]*`)

	// Whitespace.
	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
	lineEdgeRe   = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	crlfReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// mojibakeReplacer repairs UTF-8 text that was mis-decoded as Windows-1252
// somewhere upstream. Smart punctuation is the usual casualty.
var mojibakeReplacer = strings.NewReplacer(
	"â€™", "'", // ’
	"â€˜", "'", // ‘
	"â€œ", `"`, // “
	"â€", `"`, // ”
	"â€”", "—", // —
	"â€“", "–", // –
	"â€¦", "...", // …
	"Â ", " ", // non-breaking space
	"Â ", " ", // nbsp whose second byte was already flattened to a space
)

// smartPunctReplacer maps typographic punctuation to plain ASCII so the
// chunker's boundary patterns only have one quote form to care about.
var smartPunctReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
)

// Text applies the full cleanup pipeline to raw chapter text. It is a pure,
// total function: it always returns a string, possibly empty, and applying
// it to its own output returns the output unchanged.
//
// Passes run in a fixed order so later ones can rely on earlier ones. When
// two passes touch the same span the fixed order decides the result; there
// is no second global pass.
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	s := crlfReplacer.Replace(raw)

	// Upstream editors paste HTML into markdown fields; convert it away
	// before any markdown handling.
	s = stripHTML(s)

	// Compose combining sequences so the mojibake and quote passes see
	// canonical forms.
	s = norm.NFC.String(s)

	// 1. Stray emphasis markers.
	for {
		replaced := isolatedAsteriskRe.ReplaceAllString(s, "$1$2")
		if replaced == s {
			break
		}
		s = replaced
	}

	// 2. Markdown structure, visible text only. Asterisks that survive the
	// pair replacements are orphaned markers and go too.
	s = headerRe.ReplaceAllString(s, "")
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = boldUnderRe.ReplaceAllString(s, "$1")
	s = italicUnderRe.ReplaceAllString(s, "$1")
	s = strikethroughRe.ReplaceAllString(s, "$1")
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	s = linkRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "*", "")

	// 3. Encoding repairs.
	s = mojibakeReplacer.Replace(s)

	// 4. Smart punctuation to ASCII.
	s = smartPunctReplacer.Replace(s)

	// 5. Duplicated punctuation.
	s = quotedPeriodRe.ReplaceAllString(s, "$1")
	s = collapsePunctRuns(s)

	// 6. Em-dash variants and spacing.
	s = dashRunRe.ReplaceAllString(s, "—")
	s = strings.ReplaceAll(s, "–", "—")
	s = emDashSpaceRe.ReplaceAllString(s, "—")

	// 7. Whitespace.
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = lineEdgeRe.ReplaceAllString(s, "")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// collapsePunctRuns reduces a run of the same punctuation mark to a single
// instance. Ellipses written as repeated periods collapse too; narration has
// no use for them.
func collapsePunctRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		if r == prev && strings.ContainsRune(".!?,;:", r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
