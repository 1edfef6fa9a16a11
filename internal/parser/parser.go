// Package parser turns one raw chat line, however the capture layer obtained
// it, into a chatmsg.ChatMessage. See spec §4.C.
//
// A line arrives in one of several shapes depending on client locale and
// chat type, tried here in a fixed order until one matches; the first match
// wins and parsing stops. Anything matching none of them, or recognized as a
// WoW system message rather than player speech, is dropped (ok == false).
//
// A leading "M/D HH:MM:SS.mmm" client timestamp, if present, is stripped
// before the rule table runs and stamped onto the resulting message.
package parser

import (
	"regexp"
	"strings"
	"time"

	"wct/internal/domain/chatmsg"
	"wct/internal/infra/clock"
)

var (
	reColorStart    = regexp.MustCompile(`\|c[0-9A-Fa-f]{8}`)
	reColorEnd      = regexp.MustCompile(`\|r`)
	reHyperlinkOpen = regexp.MustCompile(`\|H[^|]*\|h`)
	reHyperlinkHide = regexp.MustCompile(`\|h`)
	// reFullLink matches one whole link, optionally color-wrapped:
	// |cAARRGGBB|H<payload>|h[Label]|h|r.
	reFullLink = regexp.MustCompile(`(?:\|c[0-9A-Fa-f]{8})?\|H[^|]*\|h\[[^\]]*\]\|h(?:\|r)?`)
)

// reTimestampPrefix matches the standard client chat-log timestamp every
// real captured line carries: "M/D HH:MM:SS.mmm" followed by the rest of
// the line. Captured group 1 is the timestamp text (chatmsg.TimestampLayout
// format), group 2 is the remainder handed to the rule table below.
var reTimestampPrefix = regexp.MustCompile(`^(\d{1,2}/\d{1,2}\s+\d{1,2}:\d{2}:\d{2}\.\d{1,3})\s+(.*)$`)

// splitTimestampPrefix strips a leading client timestamp, if present,
// returning the parsed time and the remainder of the line to run the rule
// table against. A line with no timestamp prefix (e.g. the legacy
// structured shorthand before a scanner synthesizes one) is returned
// unchanged with a zero time.
func splitTimestampPrefix(raw string) (ts time.Time, rest string) {
	m := reTimestampPrefix.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, raw
	}
	parsed, err := time.Parse(chatmsg.TimestampLayout, m[1])
	if err != nil {
		return time.Time{}, raw
	}
	return parsed, m[2]
}

// stripMarkup removes every inline color/hyperlink escape, leaving just the
// plain display text (including the bracketed label of any link, since
// that's the human-readable part).
func stripMarkup(s string) string {
	s = reColorStart.ReplaceAllString(s, "")
	s = reColorEnd.ReplaceAllString(s, "")
	s = reHyperlinkOpen.ReplaceAllString(s, "")
	s = reHyperlinkHide.ReplaceAllString(s, "")
	return s
}

// splitAuthorServer splits "Name-Server" on the first hyphen. A line with no
// hyphen is an NPC or same-realm speaker with no server suffix.
func splitAuthorServer(raw string) (author, server string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '-'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

type parseRule struct {
	name  string
	regex *regexp.Regexp
	build func(m []string) (chatmsg.ChatMessage, bool)
}

var rules []parseRule

func init() {
	rules = []parseRule{
		// 0. Legacy structured shorthand the helper can emit directly instead
		// of a real client line: optional SEQ, then CHANNEL|AUTHOR-SERVER|TEXT.
		{
			name:  "structured",
			regex: regexp.MustCompile(`^(?:\d+\|)?([A-Za-z]+)\|([^|]+)\|(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				ch, ok := lookupBracketChannel(m[1])
				if !ok {
					return chatmsg.ChatMessage{}, false
				}
				author, server := splitAuthorServer(m[2])
				return chatmsg.ChatMessage{Channel: ch, Author: author, Server: server, Text: m[3]}, true
			},
		},
		// 1a. Whisper-to, English: "To [Name-Server]: text"
		{
			name:  "whisper-to-en",
			regex: regexp.MustCompile(`^To \[([^\]]+)\]:\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				author, server := splitAuthorServer(m[1])
				return chatmsg.ChatMessage{Channel: chatmsg.ChannelWhisperTo, Author: author, Server: server, Text: m[2]}, true
			},
		},
		// 1b. Whisper-to, Russian: "Кому [Name-Server]: text"
		{
			name:  "whisper-to-ru",
			regex: regexp.MustCompile(`^Кому \[([^\]]+)\]:\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				author, server := splitAuthorServer(m[1])
				return chatmsg.ChatMessage{Channel: chatmsg.ChannelWhisperTo, Author: author, Server: server, Text: m[2]}, true
			},
		},
		// 2. Whisper-from, either locale, author optionally hyperlinked.
		{
			name: "whisper-from",
			regex: regexp.MustCompile(
				`^(?:\|Hplayer:[^|]*\|h\[([^\]]+)\]\|h|([^\s|][^:]*?))\s+(?:whispers|шепчет):\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				raw := m[1]
				if raw == "" {
					raw = m[2]
				}
				author, server := splitAuthorServer(raw)
				return chatmsg.ChatMessage{Channel: chatmsg.ChannelWhisperFrom, Author: author, Server: server, Text: m[3]}, true
			},
		},
		// 3. Hyperlinked channel name, non-EN clients:
		// "|Hchannel:TYPE|h[LocalName]|h Author-Server: text"
		{
			name: "hyperlinked-channel",
			regex: regexp.MustCompile(
				`^\|Hchannel:([A-Za-z_]+)\|h\[[^\]]*\]\|h\s+([^\s:][^:]*?):\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				ch, ok := lookupHyperlinkChannel(m[1])
				if !ok {
					return chatmsg.ChatMessage{}, false
				}
				author, server := splitAuthorServer(m[2])
				return chatmsg.ChatMessage{Channel: ch, Author: author, Server: server, Text: m[3]}, true
			},
		},
		// 4. Bracket channel name + hyperlinked player:
		// "[LocalName] |Hplayer:...|h[Name-Server]|h: text"
		{
			name: "bracket-hyperlinked-player",
			regex: regexp.MustCompile(
				`^\[([^\]]+)\]\s+\|Hplayer:[^|]*\|h\[([^\]]+)\]\|h:\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				ch, ok := lookupBracketChannel(m[1])
				if !ok {
					return chatmsg.ChatMessage{}, false
				}
				author, server := splitAuthorServer(m[2])
				return chatmsg.ChatMessage{Channel: ch, Author: author, Server: server, Text: m[3]}, true
			},
		},
		// 5. Standard English channel: "[ChannelName] Name-Server: text"
		{
			name:  "bracket-plain",
			regex: regexp.MustCompile(`^\[([^\]]+)\]\s+([^\s:][^:]*?):\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				ch, ok := lookupBracketChannel(m[1])
				if !ok {
					return chatmsg.ChatMessage{}, false
				}
				author, server := splitAuthorServer(m[2])
				return chatmsg.ChatMessage{Channel: ch, Author: author, Server: server, Text: m[3]}, true
			},
		},
		// 6. AddMessage-style whisper, both locales: "Name-Server tells you: text"
		{
			name: "whisper-addmessage",
			regex: regexp.MustCompile(
				`^(?:\|Hplayer:[^|]*\|h\[([^\]]+)\]\|h|([^\s|][^:]*?))\s+(?:tells you|сообщает вам):\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				raw := m[1]
				if raw == "" {
					raw = m[2]
				}
				author, server := splitAuthorServer(raw)
				return chatmsg.ChatMessage{Channel: chatmsg.ChannelWhisperFrom, Author: author, Server: server, Text: m[3]}, true
			},
		},
		// 7. Say/yell via verb, hyperlinked player or plain NPC name.
		{
			name: "say-yell-verb",
			regex: regexp.MustCompile(
				`^(?:\|Hplayer:[^|]*\|h\[([^\]]+)\]\|h|([^\s|][^:]*?))\s+(says|yells|говорит|кричит):\s*(.*)$`),
			build: func(m []string) (chatmsg.ChatMessage, bool) {
				ch, ok := lookupVerbChannel(m[3])
				if !ok {
					return chatmsg.ChatMessage{}, false
				}
				raw := m[1]
				if raw == "" {
					raw = m[2]
				}
				author, server := splitAuthorServer(raw)
				return chatmsg.ChatMessage{Channel: ch, Author: author, Server: server, Text: m[4]}, true
			},
		},
	}
}

// Parse converts one raw line into a ChatMessage. ok is false when the line
// matched no known format, was pure hyperlink content with nothing else to
// say, or was recognized as a system message rather than speech.
func Parse(raw string) (chatmsg.ChatMessage, bool) {
	ts, rest := splitTimestampPrefix(raw)
	for _, r := range rules {
		m := r.regex.FindStringSubmatch(rest)
		if m == nil {
			continue
		}
		msg, ok := r.build(m)
		if !ok {
			continue
		}
		msg.Timestamp = ts
		return finish(msg)
	}
	return chatmsg.ChatMessage{}, false
}

// finish runs the shared postprocessing: drop link-only text, drop system
// noise, strip remaining markup, stamp a timestamp if one wasn't carried.
func finish(msg chatmsg.ChatMessage) (chatmsg.ChatMessage, bool) {
	if strings.TrimSpace(reFullLink.ReplaceAllString(msg.Text, "")) == "" {
		return chatmsg.ChatMessage{}, false
	}
	plain := strings.TrimSpace(stripMarkup(msg.Text))
	if plain == "" {
		return chatmsg.ChatMessage{}, false
	}
	if isSystemNoise(plain) {
		return chatmsg.ChatMessage{}, false
	}
	msg.Text = plain
	msg.Author = strings.TrimSpace(msg.Author)
	msg.Server = strings.TrimSpace(msg.Server)
	if msg.Timestamp.IsZero() {
		msg.Timestamp = clock.Now()
	}
	if !msg.Valid() {
		return chatmsg.ChatMessage{}, false
	}
	return msg, true
}
