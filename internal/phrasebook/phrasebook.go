package phrasebook

import "strings"

type phraseKey struct {
	text string
	src  string
	tgt  string
}

var phrases = map[phraseKey]string{}

// register adds one phrase pair symmetrically across the language pair: the
// English form translates to the Russian form and vice versa. When several
// English forms share one Russian form, the first one registered is what the
// Russian form translates back to. A real deployment carries roughly a
// hundred of these; this is a representative seed covering greetings, raid
// callouts and the handful of phrases the end-to-end scenarios in §8 depend
// on.
func register(en, ru string) {
	phrases[phraseKey{text: Normalize(en), src: "EN", tgt: "RU"}] = ru
	ruKey := phraseKey{text: Normalize(ru), src: "RU", tgt: "EN"}
	if _, taken := phrases[ruKey]; !taken {
		phrases[ruKey] = en
	}
}

func init() {
	register("hello", "привет")
	register("hi", "привет")
	register("good luck", "удачи")
	register("gl hf", "удачи, хорошей игры")
	register("well played", "хорошая игра")
	register("good job", "молодцы")
	register("thanks", "спасибо")
	register("thank you", "спасибо")
	register("you're welcome", "пожалуйста")
	register("sorry", "извините")
	register("one moment", "один момент")
	register("ready?", "готовы?")
	register("pull in 3 2 1", "пул через 3 2 1")
	register("need heals", "нужны хилы")
	register("incoming", "атакуют")
	register("run away", "бежим")
	register("nice", "отлично")
	register("good game", "хорошая игра")
	register("where are you", "ты где")
	register("follow me", "за мной")
	register("wait for me", "подожди меня")
	register("i'm back", "я вернулся")
	register("be right back", "сейчас вернусь")
	register("let's go", "погнали")
	register("good morning", "доброе утро")
	register("good night", "спокойной ночи")
}

// Lookup checks the phrasebook for a (normalized_text, source_lang,
// target_lang) hit. Language codes are matched case-insensitively.
func Lookup(text, sourceLang, targetLang string) (string, bool) {
	key := phraseKey{
		text: Normalize(text),
		src:  strings.ToUpper(sourceLang),
		tgt:  strings.ToUpper(targetLang),
	}
	translated, ok := phrases[key]
	return translated, ok
}
