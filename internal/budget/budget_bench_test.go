package budget

import "testing"

func BenchmarkInputChars(b *testing.B) {
	prompt := "You summarise web pages for a personal bookmark list."
	for i := 0; i < b.N; i++ {
		_ = InputChars("gpt-4o-mini", prompt, 512)
	}
}
