// Package pipeline wires the rest of the system together: the single
// consumer that turns one raw line, from whichever source produced it, into
// a TranslatedMessage for the GUI sink. See spec §4.I.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"wct/internal/cache"
	"wct/internal/detect"
	"wct/internal/domain/chatmsg"
	"wct/internal/infra/config"
	"wct/internal/infra/logger"
	"wct/internal/mt"
	"wct/internal/parser"
	"wct/internal/phrasebook"
	"wct/internal/shield"
)

// inboundMessage is the tagged union the orchestrator's input channel
// carries, replacing the source's untyped "line or config" union with two
// concrete Go types behind one marker method.
type inboundMessage interface {
	isInboundMessage()
}

// RawLine is one unparsed chat line pushed by the scanner or the file
// watcher; both sources use the same shape.
type RawLine string

func (RawLine) isInboundMessage() {}

// ConfigUpdate carries a freshly loaded settings record, pushed by the GUI
// (or the config file watcher) to hot-reconfigure the running pipeline.
type ConfigUpdate config.Settings

func (ConfigUpdate) isInboundMessage() {}

// mtSourceLanguageSupported lists the ISO 639-1 codes the MT provider
// accepts as a source language. detect.Detector can report Korean (it's
// useful for the skip/own-language decisions even when the provider can't
// translate from it), but the provider's source-language set doesn't
// include it, so a Korean detection takes the "language not in the MT map"
// branch of step 8 rather than reaching the MT adapter.
var mtSourceLanguageSupported = map[string]bool{
	"EN": true, "RU": true, "DE": true, "FR": true, "ES": true,
	"PT": true, "IT": true, "PL": true, "BG": true, "UK": true,
	"TR": true, "ZH": true,
}

// Pipeline is the single-threaded consumer described in §5: one goroutine
// reads inboundMessage values off a channel and runs each RawLine through
// the deterministic §4.I sequence. MT calls happen on this goroutine and may
// block for seconds; that's intentional — one MT call at a time.
type Pipeline struct {
	input chan inboundMessage

	detector  *detect.Detector
	cache     *cache.Cache
	mtAdapter *mt.Adapter
	dedup     *messageDedup

	cfg config.Settings

	onMessage func(chatmsg.TranslatedMessage)

	stopCh chan struct{}
	done   chan struct{}
}

// New builds a Pipeline. initial is the settings snapshot in effect until
// the first ConfigUpdate arrives.
func New(detector *detect.Detector, translationCache *cache.Cache, mtAdapter *mt.Adapter, initial config.Settings, onMessage func(chatmsg.TranslatedMessage)) *Pipeline {
	return &Pipeline{
		input:     make(chan inboundMessage, 256),
		detector:  detector,
		cache:     translationCache,
		mtAdapter: mtAdapter,
		dedup:     newMessageDedup(),
		cfg:       initial,
		onMessage: onMessage,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// PushLine enqueues a raw line from the scanner or file watcher. It blocks
// only on a full channel, never on pipeline processing (processing happens
// on the consumer goroutine, not here).
func (p *Pipeline) PushLine(raw string) {
	select {
	case p.input <- RawLine(raw):
	case <-p.stopCh:
	}
}

// PushConfigUpdate enqueues a freshly loaded settings record. Per §4.K, the
// new config takes effect atomically at the top of the next message.
func (p *Pipeline) PushConfigUpdate(next config.Settings) {
	select {
	case p.input <- ConfigUpdate(next):
	case <-p.stopCh:
	}
}

// Run consumes inboundMessage values until ctx is canceled or Stop is
// called. It returns once the consumer goroutine has exited.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case msg := <-p.input:
			switch m := msg.(type) {
			case RawLine:
				p.processLine(string(m))
			case ConfigUpdate:
				p.applyConfig(config.Settings(m))
			}
		}
	}
}

// Stop requests the consumer goroutine to exit and waits up to 5 s for it,
// matching the bounded-join discipline in §5.
func (p *Pipeline) Stop() {
	close(p.stopCh)
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		logger.Warn("pipeline: stop timed out waiting for consumer to exit")
	}
}

func (p *Pipeline) applyConfig(next config.Settings) {
	p.cfg = next
	p.detector.SetOwnLanguage(next.OwnLanguage)
}

func (p *Pipeline) enabledChannels() map[chatmsg.Channel]bool {
	cfg := p.cfg
	enabled := map[chatmsg.Channel]bool{
		chatmsg.ChannelSay:            cfg.ChannelSay,
		chatmsg.ChannelYell:           cfg.ChannelYell,
		chatmsg.ChannelParty:          cfg.ChannelParty,
		chatmsg.ChannelPartyLeader:    cfg.ChannelParty,
		chatmsg.ChannelRaid:           cfg.ChannelRaid,
		chatmsg.ChannelRaidLeader:     cfg.ChannelRaid,
		chatmsg.ChannelRaidWarning:    cfg.ChannelRaid,
		chatmsg.ChannelGuild:          cfg.ChannelGuild,
		chatmsg.ChannelOfficer:        cfg.ChannelGuild,
		chatmsg.ChannelWhisperFrom:    cfg.ChannelWhisper,
		chatmsg.ChannelWhisperTo:      cfg.ChannelWhisper,
		chatmsg.ChannelInstance:       cfg.ChannelInstance,
		chatmsg.ChannelInstanceLeader: cfg.ChannelInstance,
	}
	return enabled
}

func (p *Pipeline) emit(msg chatmsg.TranslatedMessage) {
	if p.onMessage != nil {
		p.onMessage(msg)
	}
}

func passthrough(msg chatmsg.ChatMessage, sourceLang string) chatmsg.TranslatedMessage {
	return chatmsg.TranslatedMessage{Message: msg, Translation: nil, SourceLang: sourceLang}
}

// processLine runs one raw line through the full §4.I sequence.
func (p *Pipeline) processLine(raw string) {
	// 1. Parse.
	msg, ok := parser.Parse(raw)
	if !ok {
		return
	}

	// 2. Dedup: (author, text) within the 30 s window.
	if p.dedup.Seen(msg.Author, msg.Text) {
		return
	}

	// 3. Channel filter.
	if !p.enabledChannels()[msg.Channel] {
		return
	}

	// 4. Own-character passthrough.
	if p.cfg.OwnCharacter != "" && msg.Author == p.cfg.OwnCharacter {
		p.emit(passthrough(msg, ""))
		return
	}

	// 5. Translation-disabled passthrough.
	if !p.cfg.TranslationEnabledDefault {
		p.emit(passthrough(msg, ""))
		return
	}

	// 6. Clean: strip residual markup, trim. Parse already cleaned the
	// text, but Clean runs again here since it's the spec's named step and
	// a cache/phrasebook hit downstream must act on identical text to what
	// a fresh MT call would see.
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	targetLang := strings.ToUpper(p.cfg.TargetLanguage)

	// 7. Abbreviation pre-lookup: universal abbreviations, then Tier-1 safe
	// abbreviations — both translate a short form standalone with no
	// source-language or co-occurrence gate.
	if translated, hit := phrasebook.LookupAbbreviation(text, targetLang); hit {
		p.emitTranslated(msg, translated, "", targetLang)
		return
	}
	if translated, hit := phrasebook.LookupTier1(text, targetLang); hit {
		p.emitTranslated(msg, translated, "", targetLang)
		return
	}

	// 8. Detect.
	sourceLang := ""
	result := p.detector.Detect(text)
	switch result.Kind {
	case detect.KindSkip:
		// Skip means "no MT needed", not "no phrasebook lookup": a known
		// phrase in the reader's own language can still carry a target-
		// language translation at zero MT cost (§8 scenario 1 depends on
		// this — "thanks" equals own-language EN, yet still resolves via
		// the EN→RU phrasebook entry rather than being dropped untranslated).
		if translated, hit := phrasebook.Lookup(text, p.cfg.OwnLanguage, targetLang); hit {
			p.emitTranslated(msg, translated, strings.ToUpper(p.cfg.OwnLanguage), targetLang)
			return
		}
		p.emit(passthrough(msg, ""))
		return
	case detect.KindUnknown:
		sourceLang = ""
	case detect.KindLanguage:
		if !mtSourceLanguageSupported[result.Language] {
			p.emit(passthrough(msg, result.Language))
			return
		}
		sourceLang = result.Language
	}

	// 9. Phrasebook (source-aware, cross-language).
	if sourceLang != "" {
		if translated, hit := phrasebook.Lookup(text, sourceLang, targetLang); hit {
			p.emitTranslated(msg, translated, sourceLang, targetLang)
			return
		}
	}

	// 10. Cache.
	cacheKey := cache.Key{Text: text, Src: sourceLang, Tgt: targetLang}
	if translated, hit := p.cache.Get(cacheKey); hit {
		p.emitTranslated(msg, translated, sourceLang, targetLang)
		return
	}

	// Glossary Tier-2 context expansion runs in-place on the source text
	// before MT (§4.E); it never short-circuits, it just changes what gets
	// translated.
	expanded := phrasebook.ExpandTier2(text)

	// 11. Shield.
	masked, replacements := shield.Strip(expanded)

	// 12. MT call.
	autoDetect := sourceLang == ""
	outcome := p.mtAdapter.Translate(context.Background(), masked, targetLang, sourceLang)

	// 13. Auto-detect self-check.
	if autoDetect && outcome.Success && strings.EqualFold(outcome.SourceLang, p.cfg.OwnLanguage) {
		p.emit(passthrough(msg, outcome.SourceLang))
		return
	}

	// 14. Restore.
	if outcome.Success {
		outcome.TranslatedText = shield.Restore(outcome.TranslatedText, replacements)
	}
	outcome.OriginalText = text

	// 15. Cache put, keyed by the resolved source language.
	resolvedSource := sourceLang
	if resolvedSource == "" {
		resolvedSource = outcome.SourceLang
	}
	if outcome.Success && resolvedSource != "" {
		putKey := cache.Key{Text: text, Src: resolvedSource, Tgt: targetLang}
		if err := p.cache.Put(putKey, outcome.TranslatedText); err != nil {
			logger.Warn("pipeline: cache put failed", zap.Error(err))
		}
	}

	// 16. Emit.
	p.emit(chatmsg.TranslatedMessage{Message: msg, Translation: &outcome, SourceLang: resolvedSource})
}

// emitTranslated builds the synthetic success outcome used by the
// phrasebook/abbreviation short-circuits, which never call the MT adapter.
func (p *Pipeline) emitTranslated(msg chatmsg.ChatMessage, translated, sourceLang, targetLang string) {
	outcome := chatmsg.TranslationOutcome{
		OriginalText:   msg.Text,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Success:        true,
		ErrorKind:      chatmsg.ErrorNone,
	}
	p.emit(chatmsg.TranslatedMessage{Message: msg, Translation: &outcome, SourceLang: sourceLang})
}
