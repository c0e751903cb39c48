package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file so env takes precedence over the file;
// explicitly passed flags are applied afterwards and win over both.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil { return }

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" { cfg.Addr = ":" + v }
	if v := os.Getenv("ADDR"); v != "" { cfg.Addr = v }
	if v := os.Getenv("CLIENT_URL"); v != "" { cfg.ClientURL = v }

	if v := os.Getenv("JWT_SECRET"); v != "" { cfg.JWTSecret = v }
	setDuration(&cfg.TokenTTL, "TOKEN_TTL")

	if v := os.Getenv("STORE_DRIVER"); v != "" { cfg.StoreDriver = v }
	if v := os.Getenv("STORE_PATH"); v != "" { cfg.StorePath = v }
	if v := os.Getenv("MONGO_URI"); v != "" { cfg.MongoURI = v }
	if v := os.Getenv("MONGO_DATABASE"); v != "" { cfg.MongoDatabase = v }

	if v := os.Getenv("SUMMARIZER_MODE"); v != "" { cfg.SummarizerMode = v }
	if v := os.Getenv("SUMMARIZER_BASE"); v != "" { cfg.SummarizerBase = v }
	setDuration(&cfg.SummarizerTimeout, "SUMMARIZER_TIMEOUT")
	setDuration(&cfg.FallbackTimeout, "FALLBACK_TIMEOUT")
	if s := strings.TrimSpace(os.Getenv("FALLBACK_MAX_CHARS")); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.FallbackMaxChars = n
		}
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" { cfg.LLMBaseURL = v }
	if v := os.Getenv("LLM_MODEL"); v != "" { cfg.LLMModel = v }
	if v := os.Getenv("LLM_API_KEY"); v != "" { cfg.LLMAPIKey = v }

	if v := os.Getenv("CACHE_DIR"); v != "" { cfg.CacheDir = v }
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	if v := os.Getenv("HTTP_USER_AGENT"); v != "" { cfg.UserAgent = v }

	setBool(&cfg.FallbackRespectRobots, "FALLBACK_RESPECT_ROBOTS")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.LangDetect, "LANGDETECT")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.LogJSON, "LOG_JSON")
}

// setBool overrides dst when envKey holds a recognised truthy/falsey value.
func setBool(dst *bool, envKey string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// setDuration overrides dst when envKey parses as a duration. Invalid values
// are ignored.
func setDuration(dst *time.Duration, envKey string) {
	if s := strings.TrimSpace(os.Getenv(envKey)); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}
