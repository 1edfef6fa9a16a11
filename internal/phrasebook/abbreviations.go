package phrasebook

import "strings"

type abbrevKey struct {
	text string
	tgt  string
}

// abbreviations are source-language-agnostic: "gg" means the same thing
// whether the speaker is typing in English or Russian, so the table is
// keyed only by the normalized text and the target language. Consulted both
// as an abbreviation pre-lookup ahead of detection (so short forms below the
// detector's minimum length still resolve) and again as a fallback after the
// source-specific phrasebook. A real deployment carries roughly a hundred
// and fifty of these; this is a representative seed.
var abbreviations = map[abbrevKey]string{}

func registerAbbrev(text, ru, en string) {
	norm := Normalize(text)
	abbreviations[abbrevKey{text: norm, tgt: "RU"}] = ru
	abbreviations[abbrevKey{text: norm, tgt: "EN"}] = en
}

func init() {
	registerAbbrev("gg", "хорошая игра", "good game")
	registerAbbrev("gl", "удачи", "good luck")
	registerAbbrev("hf", "хорошей игры", "have fun")
	registerAbbrev("glhf", "удачи, хорошей игры", "good luck, have fun")
	registerAbbrev("ty", "спасибо", "thank you")
	registerAbbrev("thx", "спасибо", "thanks")
	registerAbbrev("np", "не за что", "no problem")
	registerAbbrev("yw", "пожалуйста", "you're welcome")
	registerAbbrev("brb", "сейчас вернусь", "be right back")
	registerAbbrev("afk", "отошёл", "away from keyboard")
	registerAbbrev("k", "ок", "ok")
	registerAbbrev("kk", "ок", "ok ok")
	registerAbbrev("idk", "не знаю", "i don't know")
	registerAbbrev("omg", "о боже", "oh my god")
	registerAbbrev("wp", "хорошо сыграно", "well played")
	registerAbbrev("gj", "молодец", "good job")
	registerAbbrev("np1", "ничего страшного", "no problem")
	registerAbbrev("rdy", "готов", "ready")
	registerAbbrev("nvm", "не важно", "never mind")
	registerAbbrev("lol", "лол", "lol")
}

// LookupAbbreviation checks the universal-abbreviation table for a
// (normalized_text, target_lang) hit.
func LookupAbbreviation(text, targetLang string) (string, bool) {
	translated, ok := abbreviations[abbrevKey{text: Normalize(text), tgt: strings.ToUpper(targetLang)}]
	return translated, ok
}
