package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Sections mirror
// the dotted flag names.
type FileConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	ClientURL string `yaml:"clientURL" json:"clientURL"`

	Auth struct {
		JWTSecret string   `yaml:"jwtSecret" json:"jwtSecret"`
		TokenTTL  Duration `yaml:"tokenTTL" json:"tokenTTL"`
	} `yaml:"auth" json:"auth"`

	Store struct {
		Driver        string `yaml:"driver" json:"driver"`
		Path          string `yaml:"path" json:"path"`
		MongoURI      string `yaml:"mongoURI" json:"mongoURI"`
		MongoDatabase string `yaml:"mongoDatabase" json:"mongoDatabase"`
	} `yaml:"store" json:"store"`

	Summarizer struct {
		Mode    string   `yaml:"mode" json:"mode"`
		Base    string   `yaml:"base" json:"base"`
		Timeout Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"summarizer" json:"summarizer"`

	Fallback struct {
		Timeout       Duration `yaml:"timeout" json:"timeout"`
		MaxChars      int      `yaml:"maxChars" json:"maxChars"`
		RespectRobots bool     `yaml:"respectRobots" json:"respectRobots"`
	} `yaml:"fallback" json:"fallback"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Cache struct {
		Dir         string   `yaml:"dir" json:"dir"`
		MaxAge      Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool     `yaml:"clear" json:"clear"`
		StrictPerms bool     `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	HTTP struct {
		UserAgent string `yaml:"userAgent" json:"userAgent"`
	} `yaml:"http" json:"http"`

	LangDetect *struct {
		Enable *bool `yaml:"enable" json:"enable"`
	} `yaml:"langdetect" json:"langdetect"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration accepts Go duration strings ("90s", "12h") in YAML and JSON.
type Duration time.Duration

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error { return d.parse(node.Value) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays non-zero file values onto cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil { return }

	if fc.Addr != "" { cfg.Addr = fc.Addr }
	if fc.ClientURL != "" { cfg.ClientURL = fc.ClientURL }

	if fc.Auth.JWTSecret != "" { cfg.JWTSecret = fc.Auth.JWTSecret }
	if fc.Auth.TokenTTL > 0 { cfg.TokenTTL = time.Duration(fc.Auth.TokenTTL) }

	if fc.Store.Driver != "" { cfg.StoreDriver = fc.Store.Driver }
	if fc.Store.Path != "" { cfg.StorePath = fc.Store.Path }
	if fc.Store.MongoURI != "" { cfg.MongoURI = fc.Store.MongoURI }
	if fc.Store.MongoDatabase != "" { cfg.MongoDatabase = fc.Store.MongoDatabase }

	if fc.Summarizer.Mode != "" { cfg.SummarizerMode = fc.Summarizer.Mode }
	if fc.Summarizer.Base != "" { cfg.SummarizerBase = fc.Summarizer.Base }
	if fc.Summarizer.Timeout > 0 { cfg.SummarizerTimeout = time.Duration(fc.Summarizer.Timeout) }

	if fc.Fallback.Timeout > 0 { cfg.FallbackTimeout = time.Duration(fc.Fallback.Timeout) }
	if fc.Fallback.MaxChars != 0 { cfg.FallbackMaxChars = fc.Fallback.MaxChars }
	if fc.Fallback.RespectRobots { cfg.FallbackRespectRobots = true }

	if fc.LLM.BaseURL != "" { cfg.LLMBaseURL = fc.LLM.BaseURL }
	if fc.LLM.Model != "" { cfg.LLMModel = fc.LLM.Model }
	if fc.LLM.APIKey != "" { cfg.LLMAPIKey = fc.LLM.APIKey }

	if fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
	if fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = time.Duration(fc.Cache.MaxAge) }
	if fc.Cache.Clear { cfg.CacheClear = true }
	if fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }

	if fc.HTTP.UserAgent != "" { cfg.UserAgent = fc.HTTP.UserAgent }
	if fc.LangDetect != nil && fc.LangDetect.Enable != nil { cfg.LangDetect = *fc.LangDetect.Enable }
	if fc.Verbose { cfg.Verbose = true }
}

// ResolveConfig layers defaults, the optional config file and environment
// variables, in increasing precedence.
func ResolveConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(configPath) != "" {
		fc, err := LoadConfigFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		ApplyFileConfig(&cfg, fc)
	}
	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

// BindFlags registers the server flags on fs with the current cfg values as
// defaults, so only flags present on the command line change cfg.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address (env PORT or ADDR)")
	fs.StringVar(&cfg.ClientURL, "client.url", cfg.ClientURL, "Client origin allowed by CORS (env CLIENT_URL)")
	fs.StringVar(&cfg.JWTSecret, "auth.jwtSecret", cfg.JWTSecret, "Secret for signing tokens (env JWT_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "auth.tokenTTL", cfg.TokenTTL, "Lifetime of issued tokens")
	fs.StringVar(&cfg.StoreDriver, "store.driver", cfg.StoreDriver, "Store backend: json, sqlite or mongo")
	fs.StringVar(&cfg.StorePath, "store.path", cfg.StorePath, "JSON file or SQLite database path")
	fs.StringVar(&cfg.MongoURI, "store.mongoURI", cfg.MongoURI, "MongoDB connection URI")
	fs.StringVar(&cfg.MongoDatabase, "store.mongoDatabase", cfg.MongoDatabase, "MongoDB database name")
	fs.StringVar(&cfg.SummarizerMode, "summarizer.mode", cfg.SummarizerMode, "Primary summarizer: reader or llm")
	fs.StringVar(&cfg.SummarizerBase, "summarizer.base", cfg.SummarizerBase, "Reader service base URL; the page URL is appended")
	fs.DurationVar(&cfg.SummarizerTimeout, "summarizer.timeout", cfg.SummarizerTimeout, "Primary summarizer timeout")
	fs.DurationVar(&cfg.FallbackTimeout, "fallback.timeout", cfg.FallbackTimeout, "Direct page fetch timeout")
	fs.IntVar(&cfg.FallbackMaxChars, "fallback.maxChars", cfg.FallbackMaxChars, "Fallback text length before the ellipsis; negative disables truncation")
	fs.BoolVar(&cfg.FallbackRespectRobots, "fallback.respectRobots", cfg.FallbackRespectRobots, "Skip fallback fetches disallowed by robots.txt")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key for the OpenAI-compatible server")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Cache directory path; empty disables caching")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Max age for cache entries before purge; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear cache directory at startup")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.StringVar(&cfg.UserAgent, "http.userAgent", cfg.UserAgent, "User-Agent for outbound requests")
	fs.BoolVar(&cfg.LangDetect, "langdetect.enable", cfg.LangDetect, "Detect the language of summaries")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.BoolVar(&cfg.LogJSON, "log.json", cfg.LogJSON, "Log JSON lines instead of console output")
}

// ParseFlags resolves the full configuration for a command line. Precedence
// from low to high: defaults, config file (-config or BOOKMARKD_CONFIG),
// environment, explicitly passed flags.
func ParseFlags(name string, args []string, output io.Writer) (Config, error) {
	scratch := DefaultConfig()
	probe := flag.NewFlagSet(name, flag.ContinueOnError)
	probe.SetOutput(output)
	var configPath string
	probe.StringVar(&configPath, "config", os.Getenv("BOOKMARKD_CONFIG"), "Path to a YAML or JSON config file")
	BindFlags(probe, &scratch)
	if err := probe.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := ResolveConfig(configPath)
	if err != nil {
		return Config{}, err
	}
	final := flag.NewFlagSet(name, flag.ContinueOnError)
	final.SetOutput(io.Discard)
	final.String("config", configPath, "")
	BindFlags(final, &cfg)
	if err := final.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig checks settings shared by every command.
func ValidateConfig(cfg Config) error {
	switch strings.ToLower(trim(cfg.SummarizerMode)) {
	case "reader":
		if trim(cfg.SummarizerBase) == "" {
			return errors.New("config: summarizer.base is required in reader mode")
		}
	case "llm":
		if trim(cfg.LLMModel) == "" {
			return errors.New("config: llm.model is required in llm mode (or set LLM_MODEL)")
		}
	default:
		return fmt.Errorf("config: unknown summarizer.mode %q", cfg.SummarizerMode)
	}
	switch strings.ToLower(trim(cfg.StoreDriver)) {
	case "", "json", "sqlite":
	case "mongo", "mongodb":
		if trim(cfg.MongoURI) == "" {
			return errors.New("config: store.mongoURI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", cfg.StoreDriver)
	}
	if cfg.SummarizerTimeout < 0 || cfg.FallbackTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}

// ValidateServerConfig adds the checks needed to serve the API.
func ValidateServerConfig(cfg Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if trim(cfg.JWTSecret) == "" {
		return errors.New("config: auth.jwtSecret is required (or set JWT_SECRET)")
	}
	if trim(cfg.Addr) == "" {
		return errors.New("config: addr is required")
	}
	return nil
}

func trim(s string) string { return strings.TrimSpace(s) }
