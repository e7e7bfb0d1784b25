// Package imagegen creates images from a text prompt and saves them locally.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/agentcrew/internal/fetch"
	"github.com/hyperifyio/agentcrew/internal/llm"
)

// DefaultSize is used when the caller passes no size.
const DefaultSize = openai.CreateImageSize1024x1024

var validSizes = map[string]bool{
	openai.CreateImageSize256x256:   true,
	openai.CreateImageSize512x512:   true,
	openai.CreateImageSize1024x1024: true,
	openai.CreateImageSize1792x1024: true,
	openai.CreateImageSize1024x1792: true,
}

// Generator requests images and downloads them into Dir.
type Generator struct {
	Images  llm.ImageClient
	Fetcher fetch.Getter
	// Dir receives the files. Empty means the working directory.
	Dir string
	// Model defaults to dall-e-3.
	Model string
}

// Generate asks for one image for query and saves every returned image as
// <uuid>.png. Individual download failures are logged and skipped; the
// returned slice holds the saved file paths.
func (g *Generator) Generate(ctx context.Context, query, size string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("missing query")
	}
	if size == "" {
		size = DefaultSize
	}
	if !validSizes[size] {
		return nil, fmt.Errorf("invalid args: unsupported image size %q", size)
	}
	model := g.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	resp, err := g.Images.CreateImage(ctx, openai.ImageRequest{
		Prompt:         query,
		Model:          model,
		N:              1,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	if g.Dir != "" {
		if err := os.MkdirAll(g.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("image dir: %w", err)
		}
	}

	saved := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		data, err := g.imageBytes(ctx, item)
		if err != nil {
			log.Warn().Err(err).Str("url", item.URL).Msg("image download failed")
			continue
		}
		path := filepath.Join(g.Dir, uuid.New().String()+".png")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("image save failed")
			continue
		}
		log.Info().Str("path", path).Msg("image saved")
		saved = append(saved, path)
	}
	return saved, nil
}

func (g *Generator) imageBytes(ctx context.Context, item openai.ImageResponseDataInner) ([]byte, error) {
	if item.URL == "" {
		if item.B64JSON == "" {
			return nil, errors.New("image response has neither url nor data")
		}
		return base64.StdEncoding.DecodeString(item.B64JSON)
	}
	resp, err := g.Fetcher.Get(ctx, item.URL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
