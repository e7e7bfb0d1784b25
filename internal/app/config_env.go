package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnv returns the first non-empty value among keys.
func getEnv(keys ...string) string {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, keys ...string) {
		if *dst == "" {
			*dst = getEnv(keys...)
		}
	}
	setInt := func(dst *int, key string) {
		if *dst != 0 {
			return
		}
		if n, err := strconv.Atoi(getEnv(key)); err == nil {
			*dst = n
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, err := time.ParseDuration(getEnv(key)); err == nil {
			*dst = d
		}
	}
	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		switch strings.ToLower(getEnv(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}

	if cfg.ListenAddr == "" {
		if v := getEnv("LISTEN_ADDR"); v != "" {
			cfg.ListenAddr = v
		} else if port := getEnv("PORT"); port != "" {
			cfg.ListenAddr = ":" + port
		}
	}

	setString(&cfg.LLMBaseURL, "LLM_BASE_URL", "OPENAI_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL", "OPENAI_MODEL_NAME")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	setInt(&cfg.LLMMaxAttempts, "LLM_MAX_ATTEMPTS")
	setString(&cfg.ImageModel, "IMAGE_MODEL")
	setString(&cfg.ImageDir, "IMAGE_DIR")

	// Support both SEARX_URL and SEARXNG_URL; prefer SEARX_URL if set
	setString(&cfg.SearxURL, "SEARX_URL", "SEARXNG_URL")
	setString(&cfg.SearxKey, "SEARX_KEY", "SEARXNG_KEY")
	setString(&cfg.SearxUA, "SEARX_UA")
	setString(&cfg.FileSearchPath, "SEARCH_FILE")
	if len(cfg.DomainAllowlist) == 0 {
		cfg.DomainAllowlist = splitList(getEnv("DOMAINS_ALLOW"))
	}
	if len(cfg.DomainDenylist) == 0 {
		cfg.DomainDenylist = splitList(getEnv("DOMAINS_DENY"))
	}

	setString(&cfg.UserAgent, "USER_AGENT")
	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	if cfg.MaxBodyBytes == 0 {
		if n, err := strconv.ParseInt(getEnv("FETCH_MAX_BODY_BYTES"), 10, 64); err == nil {
			cfg.MaxBodyBytes = n
		}
	}

	setInt(&cfg.ToolsMaxCalls, "TOOLS_MAX_CALLS")
	setDuration(&cfg.ToolsMaxWallClock, "TOOLS_MAX_WALL_CLOCK")
	setDuration(&cfg.ToolsPerToolTimeout, "TOOLS_PER_TOOL_TIMEOUT")

	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	if cfg.RateLimit == 0 {
		if f, err := strconv.ParseFloat(getEnv("RATE_LIMIT"), 64); err == nil {
			cfg.RateLimit = f
		}
	}
	setInt(&cfg.RateBurst, "RATE_BURST")
	setString(&cfg.AllowOrigin, "CORS_ALLOW_ORIGIN")

	setBool(&cfg.SkipModelCheck, "SKIP_MODEL_CHECK")
	setBool(&cfg.Verbose, "VERBOSE")
}
