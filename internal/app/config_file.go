package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Durations are written
// as Go duration strings ("30s") and are only understood in YAML files.
type FileConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	LLM struct {
		BaseURL     string `yaml:"base" json:"base"`
		Model       string `yaml:"model" json:"model"`
		APIKey      string `yaml:"key" json:"key"`
		MaxAttempts int    `yaml:"maxAttempts" json:"maxAttempts"`
	} `yaml:"llm" json:"llm"`

	Images struct {
		Model string `yaml:"model" json:"model"`
		Dir   string `yaml:"dir" json:"dir"`
	} `yaml:"images" json:"images"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
		UA  string `yaml:"ua" json:"ua"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	Domains struct {
		Allow []string `yaml:"allow" json:"allow"`
		Deny  []string `yaml:"deny" json:"deny"`
	} `yaml:"domains" json:"domains"`

	Fetch struct {
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		MaxBodyBytes int64         `yaml:"maxBodyBytes" json:"maxBodyBytes"`
	} `yaml:"fetch" json:"fetch"`

	Tools struct {
		MaxCalls       int           `yaml:"maxCalls" json:"maxCalls"`
		MaxWallClock   time.Duration `yaml:"maxWallClock" json:"maxWallClock"`
		PerToolTimeout time.Duration `yaml:"perToolTimeout" json:"perToolTimeout"`
	} `yaml:"tools" json:"tools"`

	Server struct {
		RequestTimeout time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
		RateLimit      float64       `yaml:"rateLimit" json:"rateLimit"`
		RateBurst      int           `yaml:"rateBurst" json:"rateBurst"`
		AllowOrigin    string        `yaml:"allowOrigin" json:"allowOrigin"`
	} `yaml:"server" json:"server"`

	SkipModelCheck bool `yaml:"skipModelCheck" json:"skipModelCheck"`
	Verbose        bool `yaml:"verbose" json:"verbose"`
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
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// still unset after flags and env.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if *dst == 0 && v > 0 {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 && v > 0 {
			*dst = v
		}
	}

	str(&cfg.ListenAddr, fc.Listen)
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	str(&cfg.LLMModel, fc.LLM.Model)
	str(&cfg.LLMAPIKey, fc.LLM.APIKey)
	num(&cfg.LLMMaxAttempts, fc.LLM.MaxAttempts)
	str(&cfg.ImageModel, fc.Images.Model)
	str(&cfg.ImageDir, fc.Images.Dir)

	str(&cfg.SearxURL, fc.Searx.URL)
	str(&cfg.SearxKey, fc.Searx.Key)
	str(&cfg.SearxUA, fc.Searx.UA)
	str(&cfg.FileSearchPath, fc.Search.File)
	if len(cfg.DomainAllowlist) == 0 && len(fc.Domains.Allow) > 0 {
		cfg.DomainAllowlist = append([]string{}, fc.Domains.Allow...)
	}
	if len(cfg.DomainDenylist) == 0 && len(fc.Domains.Deny) > 0 {
		cfg.DomainDenylist = append([]string{}, fc.Domains.Deny...)
	}

	str(&cfg.UserAgent, fc.Fetch.UserAgent)
	dur(&cfg.FetchTimeout, fc.Fetch.Timeout)
	if cfg.MaxBodyBytes == 0 && fc.Fetch.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.Fetch.MaxBodyBytes
	}

	num(&cfg.ToolsMaxCalls, fc.Tools.MaxCalls)
	dur(&cfg.ToolsMaxWallClock, fc.Tools.MaxWallClock)
	dur(&cfg.ToolsPerToolTimeout, fc.Tools.PerToolTimeout)

	dur(&cfg.RequestTimeout, fc.Server.RequestTimeout)
	if cfg.RateLimit == 0 && fc.Server.RateLimit > 0 {
		cfg.RateLimit = fc.Server.RateLimit
	}
	num(&cfg.RateBurst, fc.Server.RateBurst)
	str(&cfg.AllowOrigin, fc.Server.AllowOrigin)

	if !cfg.SkipModelCheck && fc.SkipModelCheck {
		cfg.SkipModelCheck = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return errors.New("config: listen address is required")
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL)")
	}
	// A custom base URL usually points at a local server that needs no key.
	if strings.TrimSpace(cfg.LLMAPIKey) == "" && strings.TrimSpace(cfg.LLMBaseURL) == "" {
		return errors.New("config: llm.key is required when llm.base is not set (or set OPENAI_API_KEY)")
	}
	if cfg.LLMMaxAttempts < 0 || cfg.ToolsMaxCalls < 0 || cfg.RateBurst < 0 || cfg.MaxBodyBytes < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.RateLimit < 0 {
		return errors.New("config: negative rate limit")
	}
	if cfg.FetchTimeout < 0 || cfg.ToolsMaxWallClock < 0 || cfg.ToolsPerToolTimeout < 0 || cfg.RequestTimeout < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}
