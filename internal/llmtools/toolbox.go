package llmtools

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/hyperifyio/agentcrew/internal/extract"
    "github.com/hyperifyio/agentcrew/internal/search"
    "github.com/hyperifyio/agentcrew/internal/youtube"
)

// Tool names exposed to agents.
const (
    ToolRetrieveHTMLSource = "retrieve_html_source"
    ToolFetchUserProfile   = "fetch_user_profile"
    ToolGenerateImages     = "generate_and_save_images"
    ToolYouTubeTranscript  = "fetch_youtube_transcript"
    ToolWebSearch          = "web_search"
)

// SourceCodeFailure is returned to the model when a page cannot be retrieved.
const SourceCodeFailure = "Failed to retrieve the website's source code."

type PageExtractor interface {
    Extract(ctx context.Context, url string) (extract.Result, error)
}

type ProfileFetcher interface {
    Fetch(ctx context.Context, url string) (string, bool)
}

type ImageGenerator interface {
    Generate(ctx context.Context, query, size string) ([]string, error)
}

type TranscriptFetcher interface {
    Transcript(ctx context.Context, videoURL string) (string, error)
}

// ToolboxDeps wires tool implementations. A nil dependency leaves its tool
// unregistered.
type ToolboxDeps struct {
    Pages       PageExtractor
    Profiles    ProfileFetcher
    Images      ImageGenerator
    Transcripts TranscriptFetcher
    Search      search.Provider
}

// NewToolbox registers every tool whose dependency is present.
func NewToolbox(deps ToolboxDeps) (*Registry, error) {
    r := NewRegistry()
    var defs []ToolDefinition
    if deps.Pages != nil {
        defs = append(defs, htmlSourceTool(deps.Pages))
    }
    if deps.Profiles != nil {
        defs = append(defs, profileTool(deps.Profiles))
    }
    if deps.Images != nil {
        defs = append(defs, imagesTool(deps.Images))
    }
    if deps.Transcripts != nil {
        defs = append(defs, transcriptTool(deps.Transcripts))
    }
    if deps.Search != nil {
        defs = append(defs, searchTool(deps.Search))
    }
    for _, def := range defs {
        if err := r.Register(def); err != nil {
            return nil, err
        }
    }
    return r, nil
}

func stringArg(args json.RawMessage, key string) (string, error) {
    var m map[string]any
    if err := json.Unmarshal(args, &m); err != nil {
        return "", ArgsError("invalid args: %v", err)
    }
    s, _ := m[key].(string)
    s = strings.TrimSpace(s)
    if s == "" {
        return "", ArgsError("missing %s", key)
    }
    return s, nil
}

func htmlSourceTool(pages PageExtractor) ToolDefinition {
    return ToolDefinition{
        Name:        ToolRetrieveHTMLSource,
        Version:     "v1.0.0",
        Description: "Retrieve a web page and return its title, meta description, headers, internal and external links and body text",
        Parameters: json.RawMessage(`{
            "type":"object",
            "properties":{"website_url":{"type":"string"}},
            "required":["website_url"]
        }`),
        Capabilities: []string{"fetch", "extract"},
        Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
            u, err := stringArg(args, "website_url")
            if err != nil {
                return nil, err
            }
            res, err := pages.Extract(ctx, u)
            if err != nil {
                log.Warn().Err(err).Str("url", u).Msg("page extraction failed")
                return json.Marshal(SourceCodeFailure)
            }
            return json.Marshal(res)
        },
    }
}

func profileTool(profiles ProfileFetcher) ToolDefinition {
    return ToolDefinition{
        Name:        ToolFetchUserProfile,
        Version:     "v1.0.0",
        Description: "Fetch a personal website and return the text found within its body",
        Parameters: json.RawMessage(`{
            "type":"object",
            "properties":{"url":{"type":"string"}},
            "required":["url"]
        }`),
        Capabilities: []string{"fetch"},
        Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
            u, err := stringArg(args, "url")
            if err != nil {
                return nil, err
            }
            out := struct {
                Text *string `json:"text"`
            }{}
            if text, ok := profiles.Fetch(ctx, u); ok {
                out.Text = &text
            }
            return json.Marshal(out)
        },
    }
}

func imagesTool(images ImageGenerator) ToolDefinition {
    return ToolDefinition{
        Name:        ToolGenerateImages,
        Version:     "v1.0.0",
        Description: "Generate an image from a text description and save it locally",
        Parameters: json.RawMessage(`{
            "type":"object",
            "properties":{
                "query":{"type":"string"},
                "image_size":{"type":"string","enum":["256x256","512x512","1024x1024","1792x1024","1024x1792"]}
            },
            "required":["query"]
        }`),
        ResultSchema: json.RawMessage(`{
            "type":"object",
            "properties":{"files":{"type":"array","items":{"type":"string"}}},
            "required":["files"]
        }`),
        Capabilities: []string{"image", "write"},
        Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
            var in struct {
                Query     string `json:"query"`
                ImageSize string `json:"image_size"`
            }
            if err := json.Unmarshal(args, &in); err != nil {
                return nil, ArgsError("invalid args: %v", err)
            }
            if strings.TrimSpace(in.Query) == "" {
                return nil, ArgsError("missing query")
            }
            files, err := images.Generate(ctx, in.Query, in.ImageSize)
            if err != nil {
                return nil, err
            }
            return json.Marshal(map[string][]string{"files": files})
        },
    }
}

func transcriptTool(transcripts TranscriptFetcher) ToolDefinition {
    return ToolDefinition{
        Name:        ToolYouTubeTranscript,
        Version:     "v1.0.0",
        Description: "Fetch the transcript of a YouTube video by its watch URL",
        Parameters: json.RawMessage(`{
            "type":"object",
            "properties":{"video_url":{"type":"string"}},
            "required":["video_url"]
        }`),
        Capabilities: []string{"fetch", "transcript"},
        Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
            u, err := stringArg(args, "video_url")
            if err != nil {
                return nil, err
            }
            if _, err := youtube.VideoID(u); err != nil {
                return nil, ArgsError("invalid args: %v", err)
            }
            out := struct {
                Transcript *string `json:"transcript"`
            }{}
            text, err := transcripts.Transcript(ctx, u)
            switch {
            case errors.Is(err, youtube.ErrNoTranscript):
            case err != nil:
                return nil, fmt.Errorf("transcript: %w", err)
            default:
                out.Transcript = &text
            }
            return json.Marshal(out)
        },
    }
}

func searchTool(provider search.Provider) ToolDefinition {
    return ToolDefinition{
        Name:        ToolWebSearch,
        Version:     "v1.0.0",
        Description: "Search the public web and return titles, URLs and snippets",
        Parameters: json.RawMessage(`{
            "type":"object",
            "properties":{
                "q":{"type":"string"},
                "limit":{"type":"integer"}
            },
            "required":["q"]
        }`),
        Capabilities: []string{"search"},
        Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
            var in struct {
                Q     string `json:"q"`
                Limit int    `json:"limit"`
            }
            if err := json.Unmarshal(args, &in); err != nil {
                return nil, ArgsError("invalid args: %v", err)
            }
            q := strings.TrimSpace(in.Q)
            if q == "" {
                return nil, ArgsError("missing q")
            }
            limit := in.Limit
            if limit <= 0 {
                limit = 10
            }
            if limit > 20 {
                limit = 20
            }
            results, err := provider.Search(ctx, q, limit)
            if err != nil {
                return nil, fmt.Errorf("%s search: %w", provider.Name(), err)
            }
            if results == nil {
                results = []search.Result{}
            }
            return json.Marshal(map[string]any{"results": results})
        },
    }
}
