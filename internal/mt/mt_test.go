package mt

import (
	"context"
	"errors"
	"testing"
	"time"

	"wct/internal/domain/chatmsg"
)

type fakeClient struct {
	translateFn func(ctx context.Context, text, target, source string) (string, string, error)
	usage       Usage
	usageErr    error
}

func (f *fakeClient) Translate(ctx context.Context, text, target, source string) (string, string, error) {
	return f.translateFn(ctx, text, target, source)
}

func (f *fakeClient) Usage(ctx context.Context) (Usage, error) {
	return f.usage, f.usageErr
}

func TestTranslateEmptyInputShortCircuits(t *testing.T) {
	calls := 0
	client := &fakeClient{translateFn: func(ctx context.Context, text, target, source string) (string, string, error) {
		calls++
		return "should not happen", "", nil
	}}
	a := New(client, 50)
	defer a.Close()

	out := a.Translate(context.Background(), "   ", "RU", "EN")
	if !out.Success || out.TranslatedText != "   " {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestTranslateSuccess(t *testing.T) {
	client := &fakeClient{translateFn: func(ctx context.Context, text, target, source string) (string, string, error) {
		return "привет", "EN", nil
	}}
	a := New(client, 50)
	defer a.Close()

	out := a.Translate(context.Background(), "hello", "RU", "EN")
	if !out.Success || out.TranslatedText != "привет" || out.TargetLang != "RU" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestTranslateTargetNormalization(t *testing.T) {
	var seenTarget string
	client := &fakeClient{translateFn: func(ctx context.Context, text, target, source string) (string, string, error) {
		seenTarget = target
		return "hi", "", nil
	}}
	a := New(client, 50)
	defer a.Close()

	a.Translate(context.Background(), "привет", "EN", "RU")
	if seenTarget != "EN-US" {
		t.Fatalf("target = %q, want EN-US", seenTarget)
	}
}

func TestTranslateQuotaExceededIsNotRetried(t *testing.T) {
	calls := 0
	client := &fakeClient{translateFn: func(ctx context.Context, text, target, source string) (string, string, error) {
		calls++
		return "", "", &QuotaExceededError{Detail: "monthly limit"}
	}}
	a := New(client, 50)
	defer a.Close()

	out := a.Translate(context.Background(), "hello", "RU", "EN")
	if out.Success || out.ErrorKind != chatmsg.ErrorQuotaExceeded {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
	if out.TranslatedText != "hello" {
		t.Fatalf("expected original text retained, got %q", out.TranslatedText)
	}
}

func TestTranslateRetryAfterWaitsThenSucceedsWithoutBurningRetries(t *testing.T) {
	calls := 0
	client := &fakeClient{translateFn: func(ctx context.Context, text, target, source string) (string, string, error) {
		calls++
		if calls == 1 {
			return "", "", &RetryAfterError{Wait: 5 * time.Millisecond}
		}
		return "ok", "EN", nil
	}}
	a := New(client, 50)
	defer a.Close()

	out := a.Translate(context.Background(), "hello", "RU", "EN")
	if !out.Success || out.TranslatedText != "ok" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry after the rate-limit wait, got %d calls", calls)
	}
}

func TestTranslateExhaustsRetriesOnTransportError(t *testing.T) {
	calls := 0
	client := &fakeClient{translateFn: func(ctx context.Context, text, target, source string) (string, string, error) {
		calls++
		return "", "", &TransportError{Err: errors.New("connection reset")}
	}}
	a := New(client, 50)
	defer a.Close()

	out := a.Translate(context.Background(), "hello", "RU", "EN")
	if out.Success || out.ErrorKind != chatmsg.ErrorMaxRetriesExceeded {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.TranslatedText != "hello" {
		t.Fatalf("expected original text retained, got %q", out.TranslatedText)
	}
	if calls != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, calls)
	}
}

func TestGetUsageCaches(t *testing.T) {
	calls := 0
	client := &fakeClient{usage: Usage{CharacterCount: 10, CharacterLimit: 100}}
	countingClient := &countingUsageClient{fakeClient: client, calls: &calls}
	a := New(countingClient, 50)
	defer a.Close()

	u1, err := a.GetUsage(context.Background())
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	u2, err := a.GetUsage(context.Background())
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if u1 != u2 {
		t.Fatalf("expected cached usage to match: %+v vs %+v", u1, u2)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one underlying call due to caching, got %d", calls)
	}
}

type countingUsageClient struct {
	*fakeClient
	calls *int
}

func (c *countingUsageClient) Usage(ctx context.Context) (Usage, error) {
	*c.calls++
	return c.fakeClient.Usage(ctx)
}
