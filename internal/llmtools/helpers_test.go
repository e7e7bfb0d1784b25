package llmtools

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// stubClient replays canned responses and records requests.
type stubClient struct {
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
}

func (s *stubClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return openai.ChatCompletionResponse{}, context.Canceled
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

func jsonObj(obj map[string]any) json.RawMessage {
	b, _ := json.Marshal(obj)
	return b
}

func toolCallResp(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: args},
			}},
		},
	}}}
}

func finalResp(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
	}}}
}

func mustRegister(t *testing.T, r *Registry, def ToolDefinition) {
	t.Helper()
	if err := r.Register(def); err != nil {
		t.Fatalf("register %s: %v", def.Name, err)
	}
}

func objectSchema() json.RawMessage { return jsonObj(map[string]any{"type": "object"}) }

func decodeEnvelope(t *testing.T, content string) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		t.Fatalf("tool content not JSON: %v (%q)", err, content)
	}
	return env
}

func toolMessage(t *testing.T, transcript []openai.ChatCompletionMessage, name string) openai.ChatCompletionMessage {
	t.Helper()
	for _, m := range transcript {
		if m.Role == openai.ChatMessageRoleTool && m.Name == name {
			return m
		}
	}
	t.Fatalf("no tool message for %s in transcript", name)
	return openai.ChatCompletionMessage{}
}

func errorCode(env map[string]any) string {
	errObj, _ := env["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}
