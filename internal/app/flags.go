package app

import (
	"flag"
	"strings"
)

// Flags binds command-line flags onto a Config. Every flag defaults to the
// zero value so env and the config file can fill what the command line
// leaves unset; the effective defaults are listed in the usage text.
type Flags struct {
	Config     Config
	ConfigPath string
	EnvFile    string

	domainsAllow string
	domainsDeny  string
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	c := &f.Config
	fs.StringVar(&f.ConfigPath, "config", "", "Path to YAML or JSON config file")
	fs.StringVar(&f.EnvFile, "env", ".env", "Dotenv file loaded before reading the environment")
	fs.StringVar(&c.ListenAddr, "listen", "", "HTTP listen address (default per service, or :$PORT)")
	fs.StringVar(&c.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&c.LLMModel, "llm.model", "", "Model name (default "+defaultModel+")")
	fs.StringVar(&c.LLMAPIKey, "llm.key", "", "API key for the OpenAI-compatible server")
	fs.IntVar(&c.LLMMaxAttempts, "llm.maxAttempts", 0, "Chat completion attempts on transient errors (default 3)")
	fs.StringVar(&c.ImageModel, "images.model", "", "Image model (default "+defaultImageModel+")")
	fs.StringVar(&c.ImageDir, "images.dir", "", "Directory for generated images (default .)")
	fs.StringVar(&c.SearxURL, "searx.url", "", "SearxNG base URL for the web_search tool")
	fs.StringVar(&c.SearxKey, "searx.key", "", "SearxNG API key (optional)")
	fs.StringVar(&c.SearxUA, "searx.ua", "", "Custom User-Agent for SearxNG requests")
	fs.StringVar(&c.FileSearchPath, "search.file", "", "Path to JSON file for offline file-based search provider")
	fs.StringVar(&f.domainsAllow, "domains.allow", "", "Comma-separated allowlist of hosts for search results (subdomains included)")
	fs.StringVar(&f.domainsDeny, "domains.deny", "", "Comma-separated denylist of hosts; takes precedence over allow")
	fs.StringVar(&c.UserAgent, "fetch.ua", "", "User-Agent for page fetches")
	fs.DurationVar(&c.FetchTimeout, "fetch.timeout", 0, "Per-request page fetch timeout (default 15s)")
	fs.Int64Var(&c.MaxBodyBytes, "fetch.maxBodyBytes", 0, "Maximum page body size in bytes (default 8MiB)")
	fs.IntVar(&c.ToolsMaxCalls, "tools.maxCalls", 0, "Maximum tool calls per agent run (default 32)")
	fs.DurationVar(&c.ToolsMaxWallClock, "tools.maxWallClock", 0, "Wall-clock budget per agent run (0 disables)")
	fs.DurationVar(&c.ToolsPerToolTimeout, "tools.perToolTimeout", 0, "Timeout per tool call (default 2m)")
	fs.DurationVar(&c.RequestTimeout, "http.requestTimeout", 0, "Timeout per crew request (0 disables)")
	fs.Float64Var(&c.RateLimit, "http.rateLimit", 0, "Requests per second admitted to crew routes (0 disables)")
	fs.IntVar(&c.RateBurst, "http.rateBurst", 0, "Burst size for the request limiter (default 1)")
	fs.StringVar(&c.AllowOrigin, "http.allowOrigin", "", "Access-Control-Allow-Origin value (empty disables)")
	fs.BoolVar(&c.SkipModelCheck, "skip-model-check", false, "Skip listing models at startup")
	fs.BoolVar(&c.Verbose, "v", false, "Verbose logging")
}

// Finish copies list flags into Config once fs has been parsed.
func (f *Flags) Finish() Config {
	if s := strings.TrimSpace(f.domainsAllow); s != "" {
		f.Config.DomainAllowlist = splitList(s)
	}
	if s := strings.TrimSpace(f.domainsDeny); s != "" {
		f.Config.DomainDenylist = splitList(s)
	}
	return f.Config
}
