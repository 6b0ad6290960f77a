package ssml

import (
	"regexp"
	"strings"
)

// attr is one well-formed attribute without entity references.
const attr = `\s+[A-Za-z_][\w.-]*\s*=\s*(?:"[^"<&]*"|'[^'<&]*')`

// preservedMarkup matches pause and emphasis elements that may already be
// embedded in reply text and must survive escaping verbatim. A break must be
// self-closing; emphasis tags are kept only in matched pairs.
var preservedMarkup = regexp.MustCompile(`<break(?:` + attr + `)+\s*/>|<emphasis(?:` + attr + `)*\s*>|</emphasis\s*>`)

var attrName = regexp.MustCompile(`([A-Za-z_][\w.-]*)\s*=\s*(?:"[^"<&]*"|'[^'<&]*')`)

// escaper escapes markup-reserved characters. The "&colon;" entity is kept
// as-is so the enrichment pass can turn it into a comma.
var escaper = strings.NewReplacer(
	"&colon;", "&colon;",
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// enrichment runs in this order on escaped literal text.
var enrichment = []rule{
	{regexp.MustCompile(`&colon;`), ","},
	{regexp.MustCompile(`\.\.\.`), "<break time='400ms'/>"},
	{regexp.MustCompile(`--`), "<break time='300ms'/>"},
	{regexp.MustCompile(`\?`), "?<break time='200ms'/>"},
	{regexp.MustCompile(`!`), "!<break time='250ms'/>"},
	{regexp.MustCompile(`(?:\r?\n)+`), "<break time='500ms'/>"},
}

var whitespaceRun = regexp.MustCompile(`[\s\v\x{85}\p{Z}]{2,}`)

// segment is either literal reply text or a preserved markup element.
type segment struct {
	text      string
	preserved bool
}

// split cuts raw into alternating literal and preserved segments. Elements
// with a repeated attribute and emphasis tags without a partner stay literal.
func split(raw string) []segment {
	var segs []segment
	last := 0
	for _, loc := range preservedMarkup.FindAllStringIndex(raw, -1) {
		if loc[0] > last {
			segs = append(segs, segment{text: raw[last:loc[0]]})
		}
		tag := raw[loc[0]:loc[1]]
		segs = append(segs, segment{text: tag, preserved: uniqueAttrs(tag)})
		last = loc[1]
	}
	if last < len(raw) {
		segs = append(segs, segment{text: raw[last:]})
	}
	pairEmphasis(segs)
	return segs
}

func uniqueAttrs(tag string) bool {
	seen := make(map[string]bool)
	for _, m := range attrName.FindAllStringSubmatch(tag, -1) {
		if seen[m[1]] {
			return false
		}
		seen[m[1]] = true
	}
	return true
}

// pairEmphasis demotes emphasis tags that do not close or open a matched
// pair to literal text.
func pairEmphasis(segs []segment) {
	var open []int
	for i := range segs {
		switch {
		case !segs[i].preserved:
		case strings.HasPrefix(segs[i].text, "</"):
			if len(open) == 0 {
				segs[i].preserved = false
				continue
			}
			open = open[:len(open)-1]
		case strings.HasPrefix(segs[i].text, "<emphasis"):
			open = append(open, i)
		}
	}
	for _, i := range open {
		segs[i].preserved = false
	}
}

// xmlChars drops invalid UTF-8 and characters XML 1.0 does not allow. Control
// characters that count as whitespace become a space.
func xmlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r == '\v', r == '\f', r >= 0x1c && r <= 0x1f:
			return ' '
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

// Sanitize makes raw safe to embed in a speech markup document. Existing
// well-formed break and emphasis elements are kept verbatim, everything else
// is escaped, and punctuation is enriched with pause elements. The result is
// well-formed XML content, deterministic for a given input; empty input
// yields "".
func Sanitize(raw string) string {
	raw = xmlChars(raw)
	if raw == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(raw) + len(raw)/4)
	for _, seg := range split(raw) {
		if seg.preserved {
			sb.WriteString(seg.text)
			continue
		}
		sb.WriteString(enrich(escaper.Replace(seg.text)))
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(sb.String(), " "))
}

func enrich(s string) string {
	for _, r := range enrichment {
		s = r.pattern.ReplaceAllLiteralString(s, r.replacement)
	}
	return s
}
