package detect

import "testing"

func TestDetectTooShortIsSkip(t *testing.T) {
	d := New("EN")
	r := d.Detect("hi")
	if r.Kind != KindSkip {
		t.Fatalf("expected skip, got %+v", r)
	}
}

func TestDetectSkipPhrase(t *testing.T) {
	d := New("EN")
	r := d.Detect("GG!!")
	if r.Kind != KindSkip {
		t.Fatalf("expected skip for gaming jargon, got %+v", r)
	}
}

func TestDetectOwnLanguagePassthrough(t *testing.T) {
	d := New("EN")
	r := d.Detect("this is clearly an english sentence about raiding tonight")
	if r.Kind != KindSkip {
		t.Fatalf("expected skip for own-language text, got %+v", r)
	}
}

func TestDetectForeignLanguage(t *testing.T) {
	d := New("EN")
	r := d.Detect("Привет, как у тебя дела сегодня вечером перед рейдом")
	if r.Kind != KindLanguage || r.Language != "RU" {
		t.Fatalf("expected RU, got %+v", r)
	}
}

func TestDetectCyrillicFallback(t *testing.T) {
	d := New("EN")
	// Heavily Cyrillic but short/garbled enough that the statistical
	// detector alone might not commit; the Cyrillic-ratio fallback should
	// still land on Russian.
	r := d.Detect("превед медвед кросавчег")
	if r.Kind != KindLanguage || r.Language != "RU" {
		t.Fatalf("expected RU via fallback, got %+v", r)
	}
}

func TestDetectOwnLanguageIsHotReconfigurable(t *testing.T) {
	d := New("EN")
	d.SetOwnLanguage("RU")
	r := d.Detect("Привет, как у тебя дела сегодня вечером перед рейдом")
	if r.Kind != KindSkip {
		t.Fatalf("expected skip once RU becomes own-language, got %+v", r)
	}
}
