// Package mt is the thin adapter over an external MT HTTP client described
// in spec §4.H. The HTTP client itself is out of scope for this pipeline —
// referenced only by the MTClient interface — so Adapter is built against
// that interface and a minimal stdlib-based implementation stands in for it.
package mt

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"wct/internal/domain/chatmsg"
	"wct/internal/infra/throttle"
)

// Usage surfaces monthly character usage for the settings UI.
type Usage struct {
	CharacterCount int
	CharacterLimit int
}

// MTClient is the external collaborator this pipeline never implements for
// real: whatever does the actual HTTP call to the translation provider.
type MTClient interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (translated, detectedSource string, err error)
	Usage(ctx context.Context) (Usage, error)
}

// QuotaExceededError signals the provider's monthly quota is exhausted.
// Implements throttle.StopRetryer so the throttler never burns a retry
// budget on a call that cannot possibly succeed differently next attempt.
type QuotaExceededError struct{ Detail string }

func (e *QuotaExceededError) Error() string {
	if e.Detail == "" {
		return "mt: quota exceeded"
	}
	return "mt: quota exceeded: " + e.Detail
}

func (e *QuotaExceededError) StopRetry() bool { return true }

// RetryAfterError signals a transient rate limit the provider told us how
// long to wait out (DeepL's 429 plus a Retry-After header), as opposed to
// QuotaExceededError's permanent monthly-quota exhaustion. Recognized by
// retryAfterWaitExtractor below so the throttler waits the provider's
// requested duration instead of guessing with exponential backoff.
type RetryAfterError struct {
	Wait time.Duration
}

func (e *RetryAfterError) Error() string {
	return "mt: rate limited, retry after " + e.Wait.String()
}

// retryAfterWaitExtractor is the throttle.WaitExtractor wired into the
// Adapter's throttler: it recognizes RetryAfterError and hands the
// provider's own requested wait back to the throttler's Do loop, instead of
// letting the generic exponential-backoff path guess at a delay.
func retryAfterWaitExtractor(err error) (time.Duration, bool) {
	var retryAfter *RetryAfterError
	if asError(err, &retryAfter) {
		return retryAfter.Wait, true
	}
	return 0, false
}

// TransportError wraps a connection/timeout-class failure: retried with
// exponential backoff.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "mt: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError wraps a non-quota error the provider returned about the
// request itself (bad target language, malformed text, ...): also retried,
// since a transient provider hiccup can surface the same shape.
type ProviderError struct{ Detail string }

func (e *ProviderError) Error() string { return "mt: provider: " + e.Detail }

// targetNormalization maps a bare language code to the region-qualified
// variant the provider expects; anything absent here is passed through
// unchanged.
var targetNormalization = map[string]string{
	"EN": "EN-US",
	"PT": "PT-BR",
}

// NormalizeTarget applies the §4.H target-language normalization rule.
func NormalizeTarget(targetLang string) string {
	upper := strings.ToUpper(targetLang)
	if mapped, ok := targetNormalization[upper]; ok {
		return mapped
	}
	return upper
}

const (
	maxAttempts       = 3
	usageRefreshEvery = 5 * time.Minute
)

// Adapter wraps an MTClient with retry/backoff, target normalization and a
// cached usage accessor. The throttler handles per-call retry pacing; the
// rate limiter caps the overall call rate so this pipeline doesn't trip the
// provider's own rate limit in the first place — two distinct concerns.
type Adapter struct {
	client    MTClient
	throttler *throttle.Throttler
	limiter   *rate.Limiter

	usageMu      sync.Mutex
	usageCached  Usage
	usageFetched time.Time
}

// New builds an Adapter. callsPerSecond bounds the proactive call rate; 0
// or negative falls back to 5.
func New(client MTClient, callsPerSecond float64) *Adapter {
	if callsPerSecond <= 0 {
		callsPerSecond = 5
	}
	t := throttle.New(int(callsPerSecond),
		throttle.WithMaxRetries(maxAttempts-1),
		throttle.WithWaitExtractors(retryAfterWaitExtractor),
	)
	t.Start(context.Background())
	return &Adapter{
		client:    client,
		throttler: t,
		limiter:   rate.NewLimiter(rate.Limit(callsPerSecond), 1),
	}
}

// Close stops the adapter's retry throttler.
func (a *Adapter) Close() {
	a.throttler.Stop()
}

// Translate performs one MT round-trip, or short-circuits for empty input.
// sourceLang may be empty to let the provider auto-detect; the detected
// source is reported back on the outcome regardless.
func (a *Adapter) Translate(ctx context.Context, text, targetLang, sourceLang string) chatmsg.TranslationOutcome {
	if strings.TrimSpace(text) == "" {
		return chatmsg.TranslationOutcome{
			OriginalText:   text,
			TranslatedText: text,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Success:        true,
		}
	}

	target := NormalizeTarget(targetLang)

	var translated, detectedSource string
	failures := 0
	err := a.throttler.Do(ctx, func() error {
		if waitErr := a.limiter.Wait(ctx); waitErr != nil {
			return waitErr
		}
		var callErr error
		translated, detectedSource, callErr = a.client.Translate(ctx, text, target, sourceLang)
		var retryAfter *RetryAfterError
		if callErr != nil && !asError(callErr, &retryAfter) {
			failures++
		}
		return callErr
	})

	if err == nil {
		return chatmsg.TranslationOutcome{
			OriginalText:   text,
			TranslatedText: translated,
			SourceLang:     firstNonEmpty(sourceLang, detectedSource),
			TargetLang:     target,
			Success:        true,
		}
	}

	out := classifyFailure(text, sourceLang, target, err)
	// All maxAttempts calls failed: the retry budget is spent, whatever the
	// last error's type. A quota error stops retrying at once and keeps its
	// own kind.
	if failures >= maxAttempts && out.ErrorKind != chatmsg.ErrorQuotaExceeded {
		out.ErrorKind = chatmsg.ErrorMaxRetriesExceeded
		out.ErrorDetail = ""
	}
	return out
}

func classifyFailure(original, sourceLang, target string, err error) chatmsg.TranslationOutcome {
	out := chatmsg.TranslationOutcome{
		OriginalText:   original,
		TranslatedText: original,
		SourceLang:     sourceLang,
		TargetLang:     target,
		Success:        false,
	}

	var quota *QuotaExceededError
	var transport *TransportError
	var provider *ProviderError
	var retryAfter *RetryAfterError
	switch {
	case asError(err, &quota):
		out.ErrorKind = chatmsg.ErrorQuotaExceeded
	case asError(err, &retryAfter):
		// throttler.Do does not return a RetryAfterError: the
		// retryAfterWaitExtractor turns each one into a wait, and a wait
		// cut short by the context returns the context error instead. One
		// arriving here anyway is classified as a transport failure.
		out.ErrorKind = chatmsg.ErrorTransport
		out.ErrorDetail = retryAfter.Error()
	case asError(err, &transport):
		out.ErrorKind = chatmsg.ErrorTransport
		out.ErrorDetail = transport.Error()
	case asError(err, &provider):
		out.ErrorKind = chatmsg.ErrorProvider
		out.ErrorDetail = provider.Detail
	default:
		out.ErrorKind = chatmsg.ErrorMaxRetriesExceeded
	}
	return out
}

// GetUsage returns cached usage, refreshing at most once every
// usageRefreshEvery so the settings UI can poll freely without hammering
// the provider.
func (a *Adapter) GetUsage(ctx context.Context) (Usage, error) {
	a.usageMu.Lock()
	defer a.usageMu.Unlock()

	if time.Since(a.usageFetched) < usageRefreshEvery && !a.usageFetched.IsZero() {
		return a.usageCached, nil
	}

	usage, err := a.client.Usage(ctx)
	if err != nil {
		return a.usageCached, err
	}
	a.usageCached = usage
	a.usageFetched = time.Now()
	return usage, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// asError is errors.As spelled out locally to avoid importing "errors"; it
// is used by retryAfterWaitExtractor, Translate and classifyFailure above.
func asError[T error](err error, target *T) bool {
	for err != nil {
		if t, ok := err.(T); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// DefaultHTTPClient is a minimal stdlib net/http MTClient implementation,
// standing in for the real out-of-scope collaborator. It speaks the DeepL v2
// shape (see default_client.go): a DeepL-Auth-Key Authorization header, JSON
// response bodies, the /v2/translate and /v2/usage endpoints, and HTTP 429
// and 403 mapped to RetryAfterError and QuotaExceededError.
type DefaultHTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewDefaultHTTPClient builds a DefaultHTTPClient with a sane HTTP timeout.
func NewDefaultHTTPClient(baseURL, apiKey string) *DefaultHTTPClient {
	return &DefaultHTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}
