package utils

import "testing"

func TestHash(t *testing.T) {
	// echo -n "abc" | sha256sum
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Hash("abc"); got != want {
		t.Errorf("Hash(abc) = %s, want %s", got, want)
	}
}

func TestURLKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{name: "host case", a: "https://A.test/story", b: "https://a.test/story", same: true},
		{name: "fragment", a: "https://a.test/story#comments", b: "https://a.test/story", same: true},
		{name: "whitespace", a: "  https://a.test/story ", b: "https://a.test/story", same: true},
		{name: "path case matters", a: "https://a.test/Story", b: "https://a.test/story", same: false},
		{name: "query matters", a: "https://a.test/story?id=1", b: "https://a.test/story?id=2", same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLKey(tt.a) == URLKey(tt.b); got != tt.same {
				t.Errorf("URLKey(%q) == URLKey(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}
