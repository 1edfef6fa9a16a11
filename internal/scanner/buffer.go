package scanner

import (
	"regexp"
	"strconv"
	"strings"

	"wct/internal/domain/chatmsg"
	"wct/internal/infra/clock"
)

const (
	bufStart = "__WCT_BUF__"
	bufEnd   = "__WCT_END__"

	// maxProbeBytes bounds a single marker-candidate read, per §4.A memory
	// discipline.
	maxProbeBytes = 64 * 1024
	// heapRegionMaxSize is the size ceiling for a region to be considered
	// part of the "heap scan" tier.
	heapRegionMaxSize = 8 * 1024 * 1024
	// regionMaxSize is the size ceiling past which a readable region is
	// never cached at all — the helper's heap never needs one this big.
	regionMaxSize = 100 * 1024 * 1024
)

// bufferLine is one decoded line out of a __WCT_BUF__...__WCT_END__ block.
type bufferLine struct {
	seq int
	raw string
}

// decodeBuffer parses payload as a buffer block. ok is false if the
// delimiters aren't both present (the marker moved or was collected).
func decodeBuffer(payload []byte) (lines []bufferLine, ok bool) {
	s := string(payload)
	start := strings.Index(s, bufStart)
	if start < 0 {
		return nil, false
	}
	rest := s[start+len(bufStart):]
	end := strings.Index(rest, bufEnd)
	if end < 0 {
		return nil, false
	}
	body := rest[:end]

	for _, raw := range strings.Split(body, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		seq, line, ok := decodeLine(raw)
		if !ok {
			continue
		}
		lines = append(lines, bufferLine{seq: seq, raw: line})
	}
	return lines, true
}

// decodeLine splits one "SEQ|RAW|PAYLOAD" or "SEQ|CHANNEL|AUTHOR-SERVER|TEXT"
// line. The legacy structured form is reassembled as "CHANNEL|AUTHOR-
// SERVER|TEXT" (SEQ consumed here), which is exactly what parser.Parse's
// structured rule expects.
func decodeLine(line string) (seq int, rawLine string, ok bool) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) < 3 {
		return 0, "", false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}
	if parts[1] == "RAW" {
		return n, parts[2], true
	}
	return n, parts[1] + "|" + parts[2], true
}

func maxSeqOf(lines []bufferLine) int {
	max := 0
	for _, l := range lines {
		if l.seq > max {
			max = l.seq
		}
	}
	return max
}

var reEmbeddedTimestamp = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}\s*`)

// sanitizeLine applies §4.A line sanitization: truncate at the first NUL,
// right-trim remaining control bytes, strip an embedded client timestamp.
func sanitizeLine(raw string) string {
	if i := strings.IndexByte(raw, 0x00); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimRightFunc(raw, func(r rune) bool { return r <= 0x08 })
	return reEmbeddedTimestamp.ReplaceAllString(raw, "")
}

// synthesizeTimestampedLine prepends a client-log-style timestamp to a line
// decoded from either buffer line kind (RAW or legacy structured), mirroring
// the original's _make_synthetic_log_line/RAW branch: both forms arrive with
// no real client timestamp of their own, so one is stamped at delivery time
// before the line reaches parser.Parse, which expects to find one.
func synthesizeTimestampedLine(line string) string {
	return clock.Now().Format(chatmsg.TimestampLayout) + "  " + line
}

// prefixCodeUnits returns the first n UTF-16 code units of s, used for the
// sequence-reset guard's pre_reset_texts snapshot.
func prefixCodeUnits(s string, n int) string {
	count := 0
	for i, r := range s {
		units := 1
		if r > 0xFFFF {
			units = 2
		}
		if count+units > n {
			return s[:i]
		}
		count += units
	}
	return s
}
