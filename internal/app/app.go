// Package app wires configuration, clients and crews into the two HTTP
// services.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/agentcrew/internal/extract"
	"github.com/hyperifyio/agentcrew/internal/fetch"
	"github.com/hyperifyio/agentcrew/internal/imagegen"
	"github.com/hyperifyio/agentcrew/internal/llm"
	"github.com/hyperifyio/agentcrew/internal/llmtools"
	"github.com/hyperifyio/agentcrew/internal/profile"
	"github.com/hyperifyio/agentcrew/internal/report"
	"github.com/hyperifyio/agentcrew/internal/search"
	"github.com/hyperifyio/agentcrew/internal/server"
	"github.com/hyperifyio/agentcrew/internal/youtube"
)

// App holds the long-lived clients shared by every request. Crews are built
// per request on top of them.
type App struct {
	cfg       Config
	provider  *llm.OpenAIProvider
	chat      llm.Client
	toolbox   *llmtools.Registry
	extractor *extract.Extractor
}

// New builds the clients and the toolbox from cfg.
func New(ctx context.Context, cfg Config) (*App, error) {
	httpClient := newHTTPClient(0)

	// Build OpenAI-compatible config
	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	transportCfg.HTTPClient = httpClient
	provider := &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}

	fetcher := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.FetchTimeout,
		MaxBodyBytes:      cfg.MaxBodyBytes,
	}
	a := &App{
		cfg:       cfg,
		provider:  provider,
		chat:      &llm.Retrying{Inner: provider, MaxTries: uint(cfg.LLMMaxAttempts)},
		extractor: &extract.Extractor{Fetcher: fetcher},
	}

	toolbox, err := llmtools.NewToolbox(llmtools.ToolboxDeps{
		Pages:       a.extractor,
		Profiles:    &profile.Scraper{Fetcher: fetcher},
		Images:      &imagegen.Generator{Images: provider, Fetcher: fetcher, Dir: cfg.ImageDir, Model: cfg.ImageModel},
		Transcripts: &youtube.Client{Fetcher: fetcher},
		Search:      searchProvider(cfg, httpClient),
	})
	if err != nil {
		return nil, fmt.Errorf("toolbox: %w", err)
	}
	a.toolbox = toolbox
	log.Debug().Strs("tools", toolbox.Names()).Msg("toolbox ready")

	if !cfg.SkipModelCheck {
		a.checkModel(ctx)
	}
	return a, nil
}

// searchProvider returns nil when no search backend is configured, which
// leaves web_search out of the toolbox.
func searchProvider(cfg Config, hc *http.Client) search.Provider {
	var p search.Provider
	switch {
	case cfg.FileSearchPath != "":
		p = &search.FileProvider{Path: cfg.FileSearchPath}
	case cfg.SearxURL != "":
		p = &search.SearxNG{
			BaseURL:    cfg.SearxURL,
			APIKey:     cfg.SearxKey,
			HTTPClient: hc,
			UserAgent:  cfg.SearxUA,
			Limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		}
	default:
		return nil
	}
	if len(cfg.DomainAllowlist) > 0 || len(cfg.DomainDenylist) > 0 {
		p = &search.Filtered{Inner: p, Policy: search.DomainPolicy{Allowlist: cfg.DomainAllowlist, Denylist: cfg.DomainDenylist}}
	}
	return p
}

// checkModel is a best-effort connectivity check; failures only warn.
func (a *App) checkModel(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := a.provider.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	for _, m := range models.Models {
		if m.ID == a.cfg.LLMModel {
			log.Info().Int("count", len(models.Models)).Str("model", m.ID).Msg("LLM model available")
			return
		}
	}
	log.Warn().Int("count", len(models.Models)).Str("model", a.cfg.LLMModel).Msg("configured model not listed by endpoint")
}

// ServerOptions maps the HTTP settings of the config.
func (a *App) ServerOptions() server.Options {
	return server.Options{
		RateLimit:      a.cfg.RateLimit,
		Burst:          a.cfg.RateBurst,
		RequestTimeout: a.cfg.RequestTimeout,
		AllowOrigin:    a.cfg.AllowOrigin,
	}
}

// CrewHandler returns the handler for the research service.
func (a *App) CrewHandler() *server.CrewHandler {
	return &server.CrewHandler{
		NewCrew: func(task string) (server.Kickoffer, error) { return a.NewResearchCrew(task), nil },
	}
}

// SEOHandler returns the handler for the SEO service.
func (a *App) SEOHandler() *server.SEOHandler {
	return &server.SEOHandler{
		NewCrew:  func(websiteURL string) (server.Kickoffer, error) { return a.NewSEOCrew(websiteURL), nil },
		Pages:    a.extractor,
		Renderer: report.Renderer{Compress: true},
	}
}
