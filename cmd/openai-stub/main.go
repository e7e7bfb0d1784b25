// Command openai-stub is a local OpenAI-compatible endpoint for running the
// crew and seo services without a real model.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools"`
}

var urlRe = regexp.MustCompile(`https?://[^\s"']+`)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		msg := respond(req)
		log.Info().Str("model", req.Model).Int("messages", len(req.Messages)).Int("tools", len(req.Tools)).Msg("chat completion")
		writeJSON(w, map[string]any{
			"id":      fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano()),
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "message": msg, "finish_reason": "stop"}},
		})
	})
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"created": time.Now().Unix(),
			"data":    []map[string]any{{"url": "http://" + r.Host + "/images/stub.png"}},
		})
	})
	mux.HandleFunc("/images/stub.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(stubPNG())
	})

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}

// respond scripts a reply from the agent role in the system prompt.
func respond(req chatRequest) map[string]any {
	system := req.Messages[0].Content
	last := req.Messages[len(req.Messages)-1]
	user := ""
	for _, m := range req.Messages {
		if m.Role == "user" {
			user = m.Content
			break
		}
	}

	if last.Role == "tool" {
		return assistant("Tool result received:\n" + truncate(last.Content, 2000))
	}
	switch {
	case strings.HasPrefix(system, "You are HTML Source Code Agent.") && offers(req, "retrieve_html_source"):
		target := strings.TrimRight(urlRe.FindString(user), ".,")
		if target == "" {
			return assistant("No website URL was given.")
		}
		args, _ := json.Marshal(map[string]string{"website_url": target})
		return map[string]any{
			"role": "assistant",
			"tool_calls": []map[string]any{{
				"id":       "call_stub_1",
				"type":     "function",
				"function": map[string]any{"name": "retrieve_html_source", "arguments": string(args)},
			}},
		}
	case strings.HasPrefix(system, "You are SEO Agent."):
		analysis := map[string]any{
			"keywords_analysis": map[string]any{"primary_keyword": "stub", "suggested_keywords": []string{"example"}},
			"title_tag":         map[string]any{"suggested": "Stub Title | Example"},
			"meta_description":  map[string]any{"suggested": "A stub meta description."},
		}
		b, _ := json.MarshalIndent(analysis, "", "  ")
		return assistant("```json\n" + string(b) + "\n```")
	default:
		first := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(user, "Current Task: "), "\n", 2)[0])
		return assistant("Stub answer: " + first)
	}
}

func offers(req chatRequest, name string) bool {
	for _, t := range req.Tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}

func assistant(content string) map[string]any {
	return map[string]any{"role": "assistant", "content": content}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func stubPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
