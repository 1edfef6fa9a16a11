// Package noise is the fixed system-message rule set from spec §6, shared
// by the scanner's pre-parse prefilter (§4.A) and the parser's
// postprocessing system-message test (§4.C) so the two call sites can never
// drift out of sync with each other.
package noise

import "strings"

// startsWith lists the literal prefixes that mark a line as non-speech:
// combat-mod tags, the helper's own channel-change notice, move-anything
// addon spam.
var startsWith = []string{
	"<DBM>", "<BW>", "<WA>", "|TInterface", "[WCT]", "[MoveAny",
	"Вы превращаете", "You convert",
	"Получено:", "You receive",
}

// channelNotices catches MoTD, channel-change and community "please be
// respectful" reminders in both bundled client locales.
var channelNotices = []string{
	"[Channel]", "[Канал]",
	"Motd:", "MOTD:", "Объявление гильдии:",
	"Please be kind", "Пожалуйста, будьте добры",
}

// lootPhrases catches the NPC/loot drop lines in both bundled locales.
var lootPhrases = []string{
	"Loot:", "receives loot:", "получил предмет", "получает добычу",
}

// IsSystemMessage reports whether cleaned is a WoW system message rather
// than player chat, per the §6 rule set.
func IsSystemMessage(cleaned string) bool {
	for _, prefix := range startsWith {
		if strings.HasPrefix(cleaned, prefix) {
			return true
		}
	}
	for _, prefix := range channelNotices {
		if strings.HasPrefix(cleaned, prefix) {
			return true
		}
	}
	if strings.Contains(cleaned, "|Hachievement:") {
		return true
	}
	if containsBoth(cleaned, "заслужил", "достижение") || containsBoth(cleaned, "has earned", "achievement") {
		return true
	}
	if strings.Contains(cleaned, " создает: ") || strings.Contains(cleaned, " creates: ") {
		return true
	}
	if containsBoth(cleaned, " производит ", " в звание ") {
		return true
	}
	for _, phrase := range lootPhrases {
		if strings.Contains(cleaned, phrase) {
			return true
		}
	}
	return false
}

func containsBoth(s, a, b string) bool {
	return strings.Contains(s, a) && strings.Contains(s, b)
}
