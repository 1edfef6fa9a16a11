package shield

import "testing"

func TestStripAndRestoreRoundTrip(t *testing.T) {
	cases := []string{
		"focus {skull} on https://wowhead.com/npc/1",
		"check www.wowhead.com for the guide",
		"|cffa335ee|Hitem:19019::::::::60:::::|h[Thunderfury]|h|r is mine",
		"plain text with no tokens at all",
		"{RT1} then {Star} then https://example.com/x",
	}

	for _, text := range cases {
		masked, repl := Strip(text)
		restored := Restore(masked, repl)
		if restored != text {
			t.Errorf("round trip failed: input=%q masked=%q restored=%q", text, masked, restored)
		}
	}
}

func TestStripOrdersPlaceholdersByAppearance(t *testing.T) {
	masked, repl := Strip("focus {skull} on https://wowhead.com/npc/1")
	want := "focus __WCT0__ on __WCT1__"
	if masked != want {
		t.Fatalf("masked = %q, want %q", masked, want)
	}
	if len(repl) != 2 || repl[0] != "{skull}" || repl[1] != "https://wowhead.com/npc/1" {
		t.Fatalf("replacements = %#v", repl)
	}
}

func TestStripHyperlinkedObjectIsOnePlaceholder(t *testing.T) {
	text := "|cffa335ee|Hitem:19019|h[Thunderfury]|h|r"
	masked, repl := Strip(text)
	if masked != "__WCT0__" {
		t.Fatalf("masked = %q", masked)
	}
	if len(repl) != 1 || repl[0] != text {
		t.Fatalf("replacements = %#v", repl)
	}
}

func TestStripNoTokens(t *testing.T) {
	masked, repl := Strip("nothing special here")
	if masked != "nothing special here" || len(repl) != 0 {
		t.Fatalf("unexpected result: %q %#v", masked, repl)
	}
}
