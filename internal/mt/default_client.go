package mt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// defaultRetryAfter is used when a 429 response carries no parseable
// Retry-After header of its own.
const defaultRetryAfter = 5 * time.Second

// parseRetryAfter reads a Retry-After header (DeepL sends it in seconds) and
// falls back to defaultRetryAfter when absent or unparseable.
func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

// translateResponse mirrors the handful of fields this adapter actually
// reads from a DeepL-shaped translation response; anything else in the
// payload is ignored.
type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

type usageResponse struct {
	CharacterCount int `json:"character_count"`
	CharacterLimit int `json:"character_limit"`
}

// Translate implements MTClient against a DeepL-shaped REST endpoint.
func (c *DefaultHTTPClient) Translate(ctx context.Context, text, targetLang, sourceLang string) (string, string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetLang)
	if sourceLang != "" {
		form.Set("source_lang", sourceLang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	// 429 is DeepL's transient rate limit, not quota exhaustion: honor its
	// Retry-After and let the throttler wait it out rather than give up.
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", "", &RetryAfterError{Wait: parseRetryAfter(resp)}
	}
	// 403 means the key's monthly quota (or the key itself) is no longer
	// valid: retrying cannot help, so this one stops the throttler outright.
	if resp.StatusCode == http.StatusForbidden {
		return "", "", &QuotaExceededError{Detail: "http " + strconv.Itoa(resp.StatusCode)}
	}

	var body translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", &ProviderError{Detail: fmt.Sprintf("http %d: %s", resp.StatusCode, body.Message)}
	}
	if len(body.Translations) == 0 {
		return "", "", &ProviderError{Detail: "empty translations array"}
	}
	return body.Translations[0].Text, body.Translations[0].DetectedSourceLanguage, nil
}

// Usage implements MTClient against a DeepL-shaped usage endpoint.
func (c *DefaultHTTPClient) Usage(ctx context.Context) (Usage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v2/usage", nil)
	if err != nil {
		return Usage{}, &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Usage{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Usage{}, &ProviderError{Detail: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	var body usageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Usage{}, &TransportError{Err: err}
	}
	return Usage{CharacterCount: body.CharacterCount, CharacterLimit: body.CharacterLimit}, nil
}
