package phrasebook

import (
	"regexp"
	"strings"
)

// ContextGate is the minimum number of distinct recognized WoW terms that
// must co-occur in a message before any Tier-2 expansion is applied to it.
const ContextGate = 2

type tier1Key struct {
	text string
	tgt  string
}

// tier1 holds "safe abbreviations": WoW jargon short enough to be mistaken
// for something else in isolation, but unambiguous once recognized, so it's
// translated standalone with no co-occurrence gate. A real deployment
// carries roughly sixty of these; this is a representative seed.
var tier1 = map[tier1Key]string{}

func registerTier1(text, ru, en string) {
	norm := Normalize(text)
	tier1[tier1Key{text: norm, tgt: "RU"}] = ru
	tier1[tier1Key{text: norm, tgt: "EN"}] = en
}

func init() {
	registerTier1("lfg", "ищу группу", "looking for group")
	registerTier1("lfm", "ищу ещё", "looking for more")
	registerTier1("pst", "пишите в лс", "please send tell")
	registerTier1("wts", "продаю", "want to sell")
	registerTier1("wtb", "покупаю", "want to buy")
	registerTier1("wtt", "меняю", "want to trade")
	registerTier1("inc", "атакуют", "incoming")
	registerTier1("oom", "нет маны", "out of mana")
	registerTier1("res", "воскресите", "resurrect")
	registerTier1("rez", "воскресите", "resurrect")
	registerTier1("bis", "лучшее снаряжение", "best in slot")
}

// LookupTier1 checks the Tier-1 safe-abbreviation table.
func LookupTier1(text, targetLang string) (string, bool) {
	translated, ok := tier1[tier1Key{text: Normalize(text), tgt: strings.ToUpper(targetLang)}]
	return translated, ok
}

// tier2 maps a lowercased WoW term to its plain-English expansion. Applied
// in-place to source text before MT, gated by ContextGate, and never for
// terms in neverExpand. A real deployment carries roughly five hundred of
// these; this is a representative seed spanning roles, raid mechanics and
// common shorthand.
var tier2 = map[string]string{
	"aggro":  "monster's attention",
	"dps":    "damage per second",
	"hp":     "health points",
	"cd":     "cooldown",
	"dc":     "disconnect",
	"mc":     "mind control",
	"ah":     "auction house",
	"ss":     "soulstone",
	"mt":     "main tank",
	"ot":     "off-tank",
	"pug":    "pick-up group",
	"wipe":   "party death",
	"kite":   "lure and run from",
	"nuke":   "heavy burst damage",
	"add":    "extra monster",
	"adds":   "extra monsters",
	"tank":   "damage-absorbing role",
	"heals":  "healing",
	"buff":   "beneficial effect",
	"debuff": "harmful effect",
	"mob":    "monster",
	"raid":   "large group instance",
	"instance": "dungeon or raid copy",
	"respawn": "reappear",
	"aoe":    "area of effect",
	"cc":     "crowd control",
	"dot":    "damage over time",
	"hot":    "heal over time",
	"proc":   "triggered effect",
}

// neverExpand lists tier2 keys that are withheld from expansion because they
// have a dominant non-gaming meaning outside this context and expanding them
// unconditionally would mislead more often than it would help.
var neverExpand = map[string]bool{
	"ah": true,
	"ss": true,
	"mc": true,
}

// wordPattern matches a single run of ASCII letters, used both to scan for
// recognized terms and to substitute them in place.
var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// recognizedTermCount returns how many distinct tier2 terms appear in text
// as whole words.
func recognizedTermCount(text string) int {
	seen := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := tier2[w]; ok {
			seen[w] = true
		}
	}
	return len(seen)
}

// ExpandTier2 substitutes every eligible WoW term in text with its plain
// English expansion, in place, but only once at least ContextGate distinct
// recognized terms co-occur in the message. Terms in neverExpand are never
// substituted regardless of how many other terms are present.
func ExpandTier2(text string) string {
	if recognizedTermCount(text) < ContextGate {
		return text
	}
	return wordPattern.ReplaceAllStringFunc(text, func(w string) string {
		lw := strings.ToLower(w)
		if neverExpand[lw] {
			return w
		}
		if expansion, ok := tier2[lw]; ok {
			return expansion
		}
		return w
	})
}
