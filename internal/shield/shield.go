// Package shield masks indivisible artifacts (hyperlinked game objects, URLs,
// raid-target markers) before a chat line goes to machine translation, and
// restores them afterwards. See spec §4.D.
package shield

import (
	"fmt"
	"regexp"
	"strings"
)

// Replacements records, in insertion order, what each placeholder stood for.
// restore does a straight substring substitution pass over it.
type Replacements []string

// placeholder is chosen to be alphanumeric + underscores only, so it can't
// be mangled by a translation engine that reflows punctuation or case.
func placeholder(i int) string {
	return fmt.Sprintf("__WCT%d__", i)
}

// reToken is one combined pattern covering all three classes, ordered
// longest/most-specific first per §4.D: a full hyperlinked game object
// alternative is listed before the bare URL alternative so that, at a given
// starting position, the more specific form wins (Go's regexp, like Perl,
// prefers the earlier alternative over a later one starting at the same
// point). Numbering the placeholders comes from a single left-to-right pass
// over this combined pattern, not from running each class as a separate
// pass — otherwise a later class's first match would always claim index 0
// regardless of where it sits in the text.
var reToken = regexp.MustCompile(
	`\|c[0-9A-Fa-f]{8}\|H[^|]*\|h\[[^\]]*\]\|h\|r` +
		`|(?i:https?://\S+|www\.\S+)` +
		`|(?i:\{(?:rt[1-8]|star|circle|diamond|triangle|moon|square|cross|skull)\})`,
)

// Strip replaces every occurrence of a protected token with a numbered
// placeholder, assigned in left-to-right order of appearance, and returns
// the masked text plus the replacements needed to invert the process.
func Strip(text string) (masked string, replacements Replacements) {
	masked = reToken.ReplaceAllStringFunc(text, func(match string) string {
		idx := len(replacements)
		replacements = append(replacements, match)
		return placeholder(idx)
	})
	return masked, replacements
}

// Restore reverses Strip: every placeholder is substituted back for its
// original text. Order doesn't matter for correctness since placeholders are
// unique strings, but we still walk replacements in insertion order to match
// the spec's description.
func Restore(masked string, replacements Replacements) string {
	out := masked
	for i, original := range replacements {
		out = strings.ReplaceAll(out, placeholder(i), original)
	}
	return out
}
