// Package phrasebook holds the static lookup layers consulted before any
// line reaches the MT adapter: a cross-language phrasebook of short common
// phrases, a source-agnostic table of universal abbreviations, and a
// two-tier glossary of WoW jargon. See spec §4.E.
package phrasebook

import (
	"regexp"
	"strings"
)

// reTrailingPunct strips the trailing ASCII punctuation run a chat line
// tends to end in, without touching an apostrophe sitting inside a word
// (e.g. "y'all").
var reTrailingPunct = regexp.MustCompile(`[!?.,:;"'()]+$`)

// Normalize lower-cases, trims outer whitespace, and strips trailing ASCII
// punctuation, exactly as §4.E specifies for phrasebook lookups.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ToLower(text)
	text = reTrailingPunct.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
