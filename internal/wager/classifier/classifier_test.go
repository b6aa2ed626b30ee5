package classifier

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"formatted side a", "§4PlayerOne was slain by PlayerTwo", "PlayerOne", true},
		{"side b only", "PlayerTwo fell from a high place", "PlayerTwo", true},
		{"nothing relevant", "nothing relevant", "", false},
		{"empty", "", "", false},
		{"case folded", "PLAYERONE tried to swim in lava", "PlayerOne", true},
		{"side a wins ties", "PlayerTwo was shot by PlayerOne", "PlayerOne", true},
		{"format code inside name", "Player§lOne drowned", "PlayerOne", true},
		{"fallback unknown name", "Zombie_42 was blown up by Creeper", "Zombie_42", true},
		{"fallback needs three chars", "Al is gone", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.text, "PlayerOne", "PlayerTwo")
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("Classify(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestResolveFailsClosedOnUnknownName(t *testing.T) {
	if got, ok := Resolve("Zombie_42 was blown up by Creeper", "PlayerOne", "PlayerTwo"); ok {
		t.Fatalf("Resolve = (%q, true), want no outcome", got)
	}
}

func TestResolveReturnsStoredSpelling(t *testing.T) {
	got, ok := Resolve("steve_x went up in flames", "Steve_X", "Alex")
	if !ok || got != "Steve_X" {
		t.Fatalf("Resolve = (%q, %v), want (%q, true)", got, ok, "Steve_X")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("§aHello §LWorld"); got != "hello world" {
		t.Fatalf("Normalize = %q, want %q", got, "hello world")
	}
}
