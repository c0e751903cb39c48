package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// LoadEnvFiles reads KEY=VALUE pairs into the process environment.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR='beta # kept'\nBAZ=gamma # dropped\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	for key, want := range map[string]string{"FOO": "alpha", "BAR": "beta # kept", "BAZ": "gamma"} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

// Later files override earlier ones; the real environment overrides both.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	t.Setenv("PRESET", "from-env")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\nPRESET=first\n"), 0o600); err != nil { t.Fatalf("write a: %v", err) }
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil { t.Fatalf("write b: %v", err) }

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
	if got := os.Getenv("PRESET"); got != "from-env" {
		t.Fatalf("real env must win: got %q", got)
	}
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ADDR", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SUMMARIZER_TIMEOUT", "3s")
	t.Setenv("FALLBACK_MAX_CHARS", "120")
	t.Setenv("FALLBACK_RESPECT_ROBOTS", "yes")
	t.Setenv("LANGDETECT", "off")
	t.Setenv("CACHE_MAX_AGE", "not-a-duration")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)
	if cfg.Addr != ":8080" || cfg.JWTSecret != "s3cret" || cfg.StoreDriver != "sqlite" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.SummarizerTimeout != 3*time.Second || cfg.FallbackMaxChars != 120 {
		t.Fatalf("timeout=%v maxChars=%d", cfg.SummarizerTimeout, cfg.FallbackMaxChars)
	}
	if !cfg.FallbackRespectRobots || cfg.LangDetect {
		t.Fatalf("booleans not applied: robots=%v lang=%v", cfg.FallbackRespectRobots, cfg.LangDetect)
	}
	if cfg.CacheMaxAge != 0 {
		t.Fatalf("invalid duration should be ignored, got %v", cfg.CacheMaxAge)
	}
}
