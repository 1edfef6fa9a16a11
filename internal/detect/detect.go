// Package detect identifies the source language of a chat line, or decides
// that it shouldn't be translated at all. See spec §4.F.
package detect

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"
)

// Kind tags what Detect decided, replacing the source's Language | UNKNOWN |
// null tagged union with a proper Go type.
type Kind int

const (
	// KindSkip means "don't translate": too short, a skip phrase, equal to
	// the configured own-language, or coerced into it via the
	// Cyrillic-sibling rule.
	KindSkip Kind = iota
	// KindUnknown means detection didn't reach a decision on long-enough,
	// non-skip text; the pipeline lets the MT provider auto-detect instead.
	KindUnknown
	// KindLanguage means a specific language, different from own-language,
	// was identified.
	KindLanguage
)

// Result is the outcome of one Detect call.
type Result struct {
	Kind Kind
	// Language is the ISO 639-1 code, upper-cased, set only when Kind is
	// KindLanguage.
	Language string
}

// strictMinRelativeDistance and lenientMinRelativeDistance pick which
// lingua-go builder variant backs a given input's length.
const (
	strictMinRelativeDistance  = 0.25
	lenientMinRelativeDistance = 0.10
	strictLengthThreshold      = 20 // code units
	minDecidableLength         = 3  // non-whitespace code units
	cyrillicMajorityRatio      = 0.5
)

// skipPhrases is the fixed set of short gaming jargon that must never be
// treated as foreign text even though a statistical detector, given no other
// context, might assign it some language. Matched against normalized text:
// lower-cased, trimmed of surrounding whitespace and of trailing
// punctuation (so "GG!!" matches "gg").
var skipPhrases = map[string]bool{
	"gg": true, "wp": true, "gl": true, "hf": true, "glhf": true,
	"ty": true, "thx": true, "np": true, "yw": true, "brb": true,
	"afk": true, "lol": true, "rofl": true, "lfg": true, "lfm": true,
	"k": true, "kk": true, "ok": true, "omg": true, "nvm": true,
}

// cyrillicSiblings are languages lingua-go can confuse with Russian because
// they share the Cyrillic script; §4.F coerces a hit here into own-language
// when own-language is Russian and the text is majority-Cyrillic.
var cyrillicSiblings = map[lingua.Language]bool{
	lingua.Bulgarian: true,
	lingua.Ukrainian: true,
}

var detectLanguages = []lingua.Language{
	lingua.English,
	lingua.Russian,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Polish,
	lingua.Bulgarian,
	lingua.Ukrainian,
	lingua.Turkish,
	lingua.Chinese,
	lingua.Korean,
}

// Detector wraps the two lingua-go builder variants and the mutable
// own-language setting, which the GUI can hot-reconfigure while the pipeline
// is running.
type Detector struct {
	strict  lingua.LanguageDetector
	lenient lingua.LanguageDetector

	mu  sync.RWMutex
	own string // ISO 639-1 code, upper-cased
}

// New builds a Detector with the given initial own-language (e.g. "EN").
func New(ownLanguage string) *Detector {
	return &Detector{
		strict: lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectLanguages...).
			WithMinimumRelativeDistance(strictMinRelativeDistance).
			Build(),
		lenient: lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectLanguages...).
			WithMinimumRelativeDistance(lenientMinRelativeDistance).
			Build(),
		own: strings.ToUpper(ownLanguage),
	}
}

// SetOwnLanguage updates the own-language setting. Safe to call from any
// goroutine while Detect runs concurrently on another.
func (d *Detector) SetOwnLanguage(lang string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.own = strings.ToUpper(lang)
}

func (d *Detector) ownLanguage() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.own
}

// Detect runs the full decision sequence from §4.F.
func (d *Detector) Detect(text string) Result {
	if nonSpaceLen(text) < minDecidableLength {
		return Result{Kind: KindSkip}
	}
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimSpace(strings.TrimRight(normalized, "!?.,:;"))
	if skipPhrases[normalized] {
		return Result{Kind: KindSkip}
	}

	own := d.ownLanguage()
	detector := d.lenient
	if utf16Len(text) >= strictLengthThreshold {
		detector = d.strict
	}

	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		if cyrillicRatio(text) >= cyrillicMajorityRatio {
			lang, ok = lingua.Russian, true
		}
	}
	if !ok {
		return Result{Kind: KindUnknown}
	}

	if cyrillicSiblings[lang] && own == "RU" && cyrillicRatio(text) >= cyrillicMajorityRatio {
		return Result{Kind: KindSkip}
	}

	code := strings.ToUpper(lang.IsoCode639_1().String())
	if code == own {
		return Result{Kind: KindSkip}
	}
	return Result{Kind: KindLanguage, Language: code}
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// utf16Len approximates the "code units" the spec's length thresholds are
// phrased in terms of (the original client counts UTF-16 code units).
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func cyrillicRatio(s string) float64 {
	var letters, cyrillic int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r >= 0x0400 && r <= 0x04FF {
			cyrillic++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(cyrillic) / float64(letters)
}
