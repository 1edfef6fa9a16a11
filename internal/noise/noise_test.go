package noise

import "testing"

func TestIsSystemMessagePrefixes(t *testing.T) {
	cases := []string{
		"<DBM> Pull in 5",
		"[WCT] translation enabled",
		"You receive item: Hearthstone.",
		"Получено: Простой деревянный посох.",
	}
	for _, c := range cases {
		if !IsSystemMessage(c) {
			t.Errorf("expected system message: %q", c)
		}
	}
}

func TestIsSystemMessageAchievementCombo(t *testing.T) {
	if !IsSystemMessage("Tank-Area52 has earned the achievement Level 60!") {
		t.Fatal("expected achievement line to be flagged")
	}
	if !IsSystemMessage("Tank-Area52 заслужил достижение Уровень 60!") {
		t.Fatal("expected localized achievement line to be flagged")
	}
}

func TestIsSystemMessageNegative(t *testing.T) {
	if IsSystemMessage("hey, ready for the pull?") {
		t.Fatal("expected normal chat to pass through")
	}
}
