package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the GigMatch service.
type Config struct {
	Telegram   TelegramConfig
	Freelancer FreelancerConfig
	AI         AIConfig
	WebApp     WebAppConfig
	Matcher    MatcherConfig
	Storage    StorageConfig
}

// TelegramConfig holds the bot credentials and menu appearance.
type TelegramConfig struct {
	BotToken     string
	MenuPhotoURL string // optional photo shown with the /start greeting
}

// FreelancerConfig holds marketplace API access settings.
type FreelancerConfig struct {
	APIBase  string
	APIToken string // expanded from env var by Load
}

// AIConfig controls the cover-letter generation layer.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

// WebAppConfig holds the mini-app server settings.
type WebAppConfig struct {
	BaseURL string // public URL Telegram opens, e.g. https://example.com
	Listen  string // local listen address
}

// MatcherConfig controls the matching loop cadence.
type MatcherConfig struct {
	FetchInterval  time.Duration // per-user gap between marketplace searches
	MaxJobsPerUser int           // search result cap per fetch
	Tick           time.Duration // scheduler tick driving due-user checks
	SearchDelay    time.Duration // spacing between consecutive marketplace requests
}

// StorageConfig locates the JSON data files.
type StorageConfig struct {
	DataDir string
}

const (
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultFreelancerBase = "https://www.freelancer.com/api"
	defaultFetchInterval  = 120 * time.Second
	defaultMaxJobs        = 5
	defaultTick           = 5 * time.Second
	defaultSearchDelay    = time.Second
	defaultWebAppListen   = "127.0.0.1:8000"

	// minFetchInterval keeps the loop from hammering the marketplace API.
	minFetchInterval = 30 * time.Second
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as
// strings).
type rawConfig struct {
	Telegram   rawTelegramConfig   `yaml:"telegram"`
	Freelancer rawFreelancerConfig `yaml:"freelancer"`
	AI         rawAIConfig         `yaml:"ai"`
	WebApp     rawWebAppConfig     `yaml:"webapp"`
	Matcher    rawMatcherConfig    `yaml:"matcher"`
	Storage    rawStorageConfig    `yaml:"storage"`
}

type rawTelegramConfig struct {
	BotToken     string `yaml:"bot_token"`
	MenuPhotoURL string `yaml:"menu_photo_url"`
}

type rawFreelancerConfig struct {
	APIBase  string `yaml:"api_base"`
	APIToken string `yaml:"api_token"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawWebAppConfig struct {
	BaseURL string `yaml:"base_url"`
	Listen  string `yaml:"listen"`
}

type rawMatcherConfig struct {
	FetchInterval  string `yaml:"fetch_interval"`
	MaxJobsPerUser int    `yaml:"max_jobs_per_user"`
	Tick           string `yaml:"tick"`
	SearchDelay    string `yaml:"search_delay"`
}

type rawStorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	fetchInterval := defaultFetchInterval
	if raw.Matcher.FetchInterval != "" {
		fetchInterval, err = time.ParseDuration(raw.Matcher.FetchInterval)
		if err != nil {
			return nil, fmt.Errorf("parse matcher.fetch_interval %q: %w", raw.Matcher.FetchInterval, err)
		}
	}
	if fetchInterval < minFetchInterval {
		fetchInterval = minFetchInterval
	}

	tick := defaultTick
	if raw.Matcher.Tick != "" {
		tick, err = time.ParseDuration(raw.Matcher.Tick)
		if err != nil {
			return nil, fmt.Errorf("parse matcher.tick %q: %w", raw.Matcher.Tick, err)
		}
	}

	searchDelay := defaultSearchDelay
	if raw.Matcher.SearchDelay != "" {
		searchDelay, err = time.ParseDuration(raw.Matcher.SearchDelay)
		if err != nil {
			return nil, fmt.Errorf("parse matcher.search_delay %q: %w", raw.Matcher.SearchDelay, err)
		}
	}

	maxJobs := raw.Matcher.MaxJobsPerUser
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobs
	}

	aiTimeout := 30 * time.Second // default
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	aiBaseURL := raw.AI.BaseURL
	if aiBaseURL == "" {
		aiBaseURL = defaultOpenAIBaseURL
	}
	aiModel := raw.AI.Model
	if aiModel == "" {
		aiModel = defaultOpenAIModel
	}

	apiBase := raw.Freelancer.APIBase
	if apiBase == "" {
		apiBase = defaultFreelancerBase
	}

	listen := raw.WebApp.Listen
	if listen == "" {
		listen = defaultWebAppListen
	}

	dataDir := raw.Storage.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			BotToken:     raw.Telegram.BotToken,
			MenuPhotoURL: raw.Telegram.MenuPhotoURL,
		},
		Freelancer: FreelancerConfig{
			APIBase:  apiBase,
			APIToken: raw.Freelancer.APIToken,
		},
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: aiBaseURL,
			Model:   aiModel,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
		WebApp: WebAppConfig{
			BaseURL: raw.WebApp.BaseURL,
			Listen:  listen,
		},
		Matcher: MatcherConfig{
			FetchInterval:  fetchInterval,
			MaxJobsPerUser: maxJobs,
			Tick:           tick,
			SearchDelay:    searchDelay,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if cfg.Freelancer.APIToken == "" {
		return fmt.Errorf("freelancer.api_token is required")
	}
	if cfg.Matcher.Tick <= 0 {
		return fmt.Errorf("matcher.tick must be positive, got %v", cfg.Matcher.Tick)
	}
	if cfg.Matcher.SearchDelay < 0 {
		return fmt.Errorf("matcher.search_delay must not be negative, got %v", cfg.Matcher.SearchDelay)
	}
	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}
	return nil
}
