package app

import "time"

// Config holds runtime configuration for one service process.
type Config struct {
	ListenAddr string

	// LLM
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMMaxAttempts int
	ImageModel     string
	ImageDir       string

	// Search
	SearxURL        string
	SearxKey        string
	SearxUA         string
	FileSearchPath  string
	DomainAllowlist []string
	DomainDenylist  []string

	// Fetch
	UserAgent    string
	FetchTimeout time.Duration
	MaxBodyBytes int64

	// Tool loop
	ToolsMaxCalls       int
	ToolsMaxWallClock   time.Duration
	ToolsPerToolTimeout time.Duration

	// HTTP service
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	AllowOrigin    string

	// Behavior
	SkipModelCheck bool
	Verbose        bool
}

const (
	defaultModel        = "gpt-4-turbo-preview"
	defaultImageModel   = "dall-e-3"
	defaultUserAgent    = "agentcrew/1.0 (+https://github.com/hyperifyio/agentcrew)"
	defaultFetchTimeout = 15 * time.Second
	defaultMaxAttempts  = 3
	defaultMaxToolCalls = 32
)

// ApplyDefaults fills whatever is still unset after flags, env and file.
func ApplyDefaults(cfg *Config, listenAddr string) {
	if cfg == nil {
		return
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = listenAddr
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}
	if cfg.ImageDir == "" {
		cfg.ImageDir = "."
	}
	if cfg.LLMMaxAttempts == 0 {
		cfg.LLMMaxAttempts = defaultMaxAttempts
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.SearxUA == "" {
		cfg.SearxUA = defaultUserAgent
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.ToolsMaxCalls == 0 {
		cfg.ToolsMaxCalls = defaultMaxToolCalls
	}
}

// ResolveConfig layers env and the optional config file beneath the values
// already set from flags, then applies defaults and validates the result.
func ResolveConfig(flags Config, configPath, listenAddr string) (Config, error) {
	cfg := flags
	ApplyEnvToConfig(&cfg)
	if configPath != "" {
		fc, err := LoadConfigFile(configPath)
		if err != nil {
			return Config{}, err
		}
		ApplyFileConfig(&cfg, fc)
	}
	ApplyDefaults(&cfg, listenAddr)
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
