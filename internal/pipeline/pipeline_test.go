package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"wct/internal/cache"
	"wct/internal/detect"
	"wct/internal/domain/chatmsg"
	"wct/internal/infra/config"
	"wct/internal/mt"
)

// fakeMTClient stands in for the out-of-scope HTTP provider. Its only
// behavior the tests rely on is the one spec §8 scenario 3/4 exercise:
// translating text whose source and target language coincide is a no-op.
type fakeMTClient struct {
	mu    sync.Mutex
	calls int
}

func regionless(code string) string {
	if i := strings.IndexByte(code, '-'); i >= 0 {
		return code[:i]
	}
	return code
}

func (f *fakeMTClient) Translate(ctx context.Context, text, targetLang, sourceLang string) (string, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if sourceLang != "" && strings.EqualFold(regionless(targetLang), sourceLang) {
		return text, sourceLang, nil
	}
	return "TRANSLATED:" + text, sourceLang, nil
}

func (f *fakeMTClient) Usage(ctx context.Context) (mt.Usage, error) {
	return mt.Usage{}, nil
}

func (f *fakeMTClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestPipeline(t *testing.T, cfg config.Settings, client *fakeMTClient) (*Pipeline, *[]chatmsg.TranslatedMessage, *sync.Mutex) {
	t.Helper()

	translationCache, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), 10, time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = translationCache.Close() })

	adapter := mt.New(client, 100)
	t.Cleanup(adapter.Close)

	detector := detect.New(cfg.OwnLanguage)

	var mu sync.Mutex
	var received []chatmsg.TranslatedMessage
	p := New(detector, translationCache, adapter, cfg, func(m chatmsg.TranslatedMessage) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, m)
	})
	return p, &received, &mu
}

func baseConfig(own, target string) config.Settings {
	cfg := config.DefaultConfig()
	cfg.OwnLanguage = own
	cfg.TargetLanguage = target
	return cfg
}

// Scenario 1: phrasebook short-circuit. own=EN, target=RU, an English
// common phrase; the speaker's language matches own-language so detection
// alone would call it a skip, but a known phrasebook entry still translates
// it rather than being dropped as redundant — see the step 8 comment in
// pipeline.go for why the skip outcome still consults the phrasebook before
// falling through to a bare passthrough.
func TestPipelinePhrasebookShortCircuit(t *testing.T) {
	client := &fakeMTClient{}
	p, received, mu := newTestPipeline(t, baseConfig("EN", "RU"), client)

	p.processLine("Party|Hero-Stormrage|thanks")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	msg := (*received)[0]
	if msg.Translation == nil || !msg.Translation.Success {
		t.Fatalf("expected successful translation, got %+v", msg.Translation)
	}
	if msg.Translation.TranslatedText != "спасибо" {
		t.Fatalf("expected спасибо, got %q", msg.Translation.TranslatedText)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected MT never called, got %d calls", client.callCount())
	}
}

// Scenario 2: detector skip, own language, no phrasebook entry covers it.
func TestPipelineDetectorSkipOwnLanguage(t *testing.T) {
	client := &fakeMTClient{}
	p, received, mu := newTestPipeline(t, baseConfig("EN", "RU"), client)

	p.processLine("Raid|Hero-Stormrage|pull in 5")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	if (*received)[0].Translation != nil {
		t.Fatalf("expected no translation, got %+v", (*received)[0].Translation)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected MT never called, got %d calls", client.callCount())
	}
}

// Scenario 3: Cyrillic fallback. Short Cyrillic text the detector can't
// decide on statistically falls back to Russian by majority script; since
// own=EN it isn't a skip, and since source==target the (fake) provider's
// own no-op applies.
func TestPipelineCyrillicFallbackSourceEqualsTarget(t *testing.T) {
	client := &fakeMTClient{}
	p, received, mu := newTestPipeline(t, baseConfig("EN", "RU"), client)

	p.processLine("Say|Гость-Сервер|мда")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	msg := (*received)[0]
	if msg.Translation == nil || !msg.Translation.Success {
		t.Fatalf("expected successful outcome, got %+v", msg.Translation)
	}
	if msg.Translation.TranslatedText != "мда" {
		t.Fatalf("expected unchanged text мда, got %q", msg.Translation.TranslatedText)
	}
	if msg.SourceLang != "RU" {
		t.Fatalf("expected source_lang RU, got %q", msg.SourceLang)
	}
}

// Scenario 4: token protection round-trips hyperlink/URL/raid-marker tokens
// through the shield around the MT call.
func TestPipelineTokenProtectionRoundTrips(t *testing.T) {
	client := &fakeMTClient{}
	p, received, mu := newTestPipeline(t, baseConfig("RU", "EN"), client)

	p.processLine("Say|Ally-Server|focus {skull} on https://wowhead.com/npc/1")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	translated := (*received)[0].Translation
	if translated == nil || !translated.Success {
		t.Fatalf("expected successful outcome, got %+v", translated)
	}
	if !strings.Contains(translated.TranslatedText, "{skull}") {
		t.Fatalf("expected raid marker preserved, got %q", translated.TranslatedText)
	}
	if !strings.Contains(translated.TranslatedText, "https://wowhead.com/npc/1") {
		t.Fatalf("expected URL preserved, got %q", translated.TranslatedText)
	}
}

// Scenario 5: the same (author, text) pair delivered twice within the
// dedup window, as if both the scanner and the file watcher saw it,
// produces exactly one emission.
func TestPipelineDedupAcrossSources(t *testing.T) {
	client := &fakeMTClient{}
	p, received, mu := newTestPipeline(t, baseConfig("EN", "RU"), client)

	p.processLine("Say|Ally-Server|gg")
	p.processLine("Say|Ally-Server|gg")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected exactly 1 message after duplicate delivery, got %d", len(*received))
	}
	if (*received)[0].Translation == nil || (*received)[0].Translation.TranslatedText != "хорошая игра" {
		t.Fatalf("expected abbreviation translation, got %+v", (*received)[0].Translation)
	}
}

// Step 3: channel filter drops a message on a disabled channel.
func TestPipelineChannelFilterDrops(t *testing.T) {
	client := &fakeMTClient{}
	cfg := baseConfig("EN", "RU")
	cfg.ChannelGuild = false
	p, received, mu := newTestPipeline(t, cfg, client)

	p.processLine("Guild|Ally-Server|hello there")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 0 {
		t.Fatalf("expected channel filter to drop the message, got %d", len(*received))
	}
}

// Step 4: own-character passthrough never reaches MT.
func TestPipelineOwnCharacterPassthrough(t *testing.T) {
	client := &fakeMTClient{}
	cfg := baseConfig("EN", "RU")
	cfg.OwnCharacter = "Hero"
	p, received, mu := newTestPipeline(t, cfg, client)

	p.processLine("Say|Hero-Server|some unrelated text here")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	if (*received)[0].Translation != nil {
		t.Fatalf("expected no translation for own character, got %+v", (*received)[0].Translation)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected MT never called, got %d", client.callCount())
	}
}

// Step 5: translation-disabled passthrough.
func TestPipelineTranslationDisabledPassthrough(t *testing.T) {
	client := &fakeMTClient{}
	cfg := baseConfig("EN", "RU")
	cfg.TranslationEnabledDefault = false
	p, received, mu := newTestPipeline(t, cfg, client)

	p.processLine("Say|Ally-Server|some random english sentence")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	if (*received)[0].Translation != nil {
		t.Fatalf("expected no translation when disabled, got %+v", (*received)[0].Translation)
	}
}

// Hot reconfigure: a ConfigUpdate changes own-language and takes effect on
// the next message (§4.K).
func TestPipelineConfigUpdateAppliesToNextMessage(t *testing.T) {
	client := &fakeMTClient{}
	p, received, mu := newTestPipeline(t, baseConfig("EN", "RU"), client)

	next := baseConfig("RU", "RU")
	p.applyConfig(next)

	p.processLine("Say|Гость-Сервер|мда")

	mu.Lock()
	defer mu.Unlock()
	if len(*received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*received))
	}
	if (*received)[0].Translation != nil {
		t.Fatalf("expected skip once own-language is RU, got %+v", (*received)[0].Translation)
	}
}
