package budget

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestModelContextTokens(t *testing.T) {
	cases := map[string]int{
		"":                defaultContext,
		"GPT-4o":          128_000,
		"gpt-oss-20b":     4_096,
		"some-model-200k": 200_000,
		"acme-mini":       128_000,
		"unknown":         defaultContext,
	}
	for name, want := range cases {
		if got := ModelContextTokens(name); got != want {
			t.Fatalf("ModelContextTokens(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestHeadroom(t *testing.T) {
	if got := Headroom("gpt-oss-20b"); got != minHeadroom {
		t.Fatalf("small window headroom = %d, want %d", got, minHeadroom)
	}
	if got := Headroom("gpt-4o"); got != 6400 {
		t.Fatalf("gpt-4o headroom = %d, want 6400", got)
	}
}

func TestInputChars(t *testing.T) {
	if got := InputChars("gpt-4o", "prompt", 512); got != MaxInputChars {
		t.Fatalf("large window = %d, want cap %d", got, MaxInputChars)
	}
	if got := InputChars("gpt-oss-20b", "", 4000); got != MinInputChars {
		t.Fatalf("exhausted window = %d, want floor %d", got, MinInputChars)
	}
	// 8192 - 512 headroom - 1000 reserve - 0 prompt = 6680 tokens.
	if got := InputChars("unknown", "", 1000); got != 6680*4 {
		t.Fatalf("default window = %d, want %d", got, 6680*4)
	}
}
