package parser

import "wct/internal/noise"

// isSystemNoise delegates to the shared §6 rule set so the parser's
// postprocessing check and the scanner's pre-parse prefilter never disagree
// about what counts as a system message.
func isSystemNoise(text string) bool {
	return noise.IsSystemMessage(text)
}
