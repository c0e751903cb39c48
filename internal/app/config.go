package app

import "time"

// Defaults shared by flag definitions and the file-config overlay. A field
// still holding its default is treated as unset when a config file is
// applied.
const (
	DefaultAddr              = ":5000"
	DefaultStoreDriver       = "json"
	DefaultStorePath         = "db.json"
	DefaultSummarizerMode    = "reader"
	DefaultSummarizerBase    = "https://r.jina.ai/"
	DefaultSummarizerTimeout = 10 * time.Second
	DefaultFallbackTimeout   = 12 * time.Second
	DefaultFallbackMaxChars  = 800
	DefaultCacheDir          = ".bookmarkd-cache"
	DefaultUserAgent         = "bookmarkd/1.0 (+https://github.com/hyperifyio/bookmarkd)"
	DefaultTokenTTL          = time.Hour
)

// Config holds runtime configuration for the server and the CLI.
type Config struct {
	Addr      string
	ClientURL string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Store
	StoreDriver   string
	StorePath     string
	MongoURI      string
	MongoDatabase string

	// Primary summarizer: "reader" asks SummarizerBase, "llm" uses the chat model.
	SummarizerMode    string
	SummarizerBase    string
	SummarizerTimeout time.Duration

	// Fallback extraction
	FallbackTimeout       time.Duration
	FallbackMaxChars      int
	FallbackRespectRobots bool

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	UserAgent  string
	LangDetect bool
	Verbose    bool
	LogJSON    bool
}

// DefaultConfig returns a Config populated with the defaults above.
func DefaultConfig() Config {
	return Config{
		Addr:              DefaultAddr,
		TokenTTL:          DefaultTokenTTL,
		StoreDriver:       DefaultStoreDriver,
		StorePath:         DefaultStorePath,
		SummarizerMode:    DefaultSummarizerMode,
		SummarizerBase:    DefaultSummarizerBase,
		SummarizerTimeout: DefaultSummarizerTimeout,
		FallbackTimeout:   DefaultFallbackTimeout,
		FallbackMaxChars:  DefaultFallbackMaxChars,
		CacheDir:          DefaultCacheDir,
		UserAgent:         DefaultUserAgent,
		LangDetect:        true,
	}
}
