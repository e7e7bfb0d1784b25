package crew

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/agentcrew/internal/llmtools"
)

// scriptedClient replays responses per agent, keyed by the role named in the
// system prompt.
type scriptedClient struct {
	mu       sync.Mutex
	scripts  map[string][]openai.ChatCompletionResponse
	requests map[string][]openai.ChatCompletionRequest
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{scripts: map[string][]openai.ChatCompletionResponse{}, requests: map[string][]openai.ChatCompletionRequest{}}
}

func (s *scriptedClient) add(role string, resps ...openai.ChatCompletionResponse) {
	s.scripts[role] = append(s.scripts[role], resps...)
}

func (s *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := ""
	if len(req.Messages) > 0 && req.Messages[0].Role == openai.ChatMessageRoleSystem {
		sys := strings.TrimPrefix(req.Messages[0].Content, "You are ")
		role = sys[:strings.Index(sys, ".")]
	}
	s.requests[role] = append(s.requests[role], req)
	queue := s.scripts[role]
	if len(queue) == 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("no scripted response for %q", role)
	}
	s.scripts[role] = queue[1:]
	return queue[0], nil
}

func final(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
	}}}
}

func call(id, name string, args map[string]string) openai.ChatCompletionResponse {
	b, _ := json.Marshal(args)
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID: id, Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: string(b)},
			}},
		},
	}}}
}

func toolNames(req openai.ChatCompletionRequest) []string {
	var names []string
	for _, t := range req.Tools {
		names = append(names, t.Function.Name)
	}
	return names
}

func lastUser(req openai.ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == openai.ChatMessageRoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

func profileToolbox(t *testing.T, calls *int) *llmtools.Registry {
	t.Helper()
	r := llmtools.NewRegistry()
	err := r.Register(llmtools.ToolDefinition{
		Name:        llmtools.ToolFetchUserProfile,
		Version:     "v1.0.0",
		Description: "fetch profile",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"url":{"type":"string"}},"required":["url"]}`),
		Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			*calls++
			return json.RawMessage(`{"text":"Jane builds compilers"}`), nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func TestKickoff_SequentialPassesContext(t *testing.T) {
	html := &Agent{Role: "HTML Source Code Agent", Goal: "get html", Backstory: "expert"}
	seo := &Agent{Role: "SEO Agent", Goal: "analyse", Backstory: "specialist"}
	htmlTask := &Task{Description: "Retrieve https://example.com", Agent: html}
	seoTask := &Task{Description: "Perform SEO analysis", Agent: seo, Context: []*Task{htmlTask}, ExpectedOutput: "numbered sections"}

	client := newScriptedClient()
	client.add(html.Role, final(`{"title":"Example"}`))
	client.add(seo.Role, final("1 Keywords Analysis"))

	c := &Crew{Agents: []*Agent{html, seo}, Tasks: []*Task{htmlTask, seoTask}, Process: Sequential, Client: client, Model: "gpt-4o"}
	out, err := c.Kickoff(context.Background())
	if err != nil {
		t.Fatalf("Kickoff: %v", err)
	}
	if out.Raw != "1 Keywords Analysis" || len(out.Tasks) != 2 || out.Tasks[0].Raw != `{"title":"Example"}` {
		t.Fatalf("unexpected output: %+v", out)
	}
	seoReq := client.requests[seo.Role][0]
	prompt := lastUser(seoReq)
	if !strings.Contains(prompt, `{"title":"Example"}`) || !strings.Contains(prompt, "numbered sections") {
		t.Fatalf("seo prompt missing context or expected output: %q", prompt)
	}
	if seoReq.Model != "gpt-4o" || len(seoReq.Tools) != 0 {
		t.Fatalf("unexpected request: model=%q tools=%v", seoReq.Model, toolNames(seoReq))
	}
	if sys := seoReq.Messages[0].Content; !strings.Contains(sys, "Your personal goal is: analyse") {
		t.Fatalf("system prompt missing goal: %q", sys)
	}
}

func TestKickoff_DelegatesToCoworker(t *testing.T) {
	researcher := &Agent{Role: "Researcher", Goal: "research", Backstory: "assistant", AllowDelegation: true}
	general := &Agent{Role: "General Assistant", Goal: "help", Backstory: "generalist", Tools: []string{llmtools.ToolFetchUserProfile}, Model: "small-model"}
	task := &Task{Description: "Summarise https://jane.example", Agent: researcher}

	client := newScriptedClient()
	client.add(researcher.Role,
		call("d1", toolDelegateWork, map[string]string{"task": "Read https://jane.example", "coworker": "general assistant", "context": "profile"}),
		final("<final>Jane builds compilers.</final>"),
	)
	client.add(general.Role,
		call("p1", llmtools.ToolFetchUserProfile, map[string]string{"url": "https://jane.example"}),
		final("Jane builds compilers"),
	)
	profileCalls := 0
	c := &Crew{Agents: []*Agent{researcher, general}, Tasks: []*Task{task}, Client: client, Tools: profileToolbox(t, &profileCalls), Model: "gpt-4o"}

	out, err := c.Kickoff(context.Background())
	if err != nil {
		t.Fatalf("Kickoff: %v", err)
	}
	if out.Raw != "Jane builds compilers." {
		t.Fatalf("unexpected final %q", out.Raw)
	}
	if profileCalls != 1 {
		t.Fatalf("expected coworker to use its tool once, got %d", profileCalls)
	}
	if got := strings.Join(toolNames(client.requests[researcher.Role][0]), ","); got != "ask_question,delegate_work" {
		t.Fatalf("researcher tools = %s", got)
	}
	genReq := client.requests[general.Role][0]
	if got := strings.Join(toolNames(genReq), ","); got != llmtools.ToolFetchUserProfile {
		t.Fatalf("coworker must not be able to delegate, tools = %s", got)
	}
	if genReq.Model != "small-model" {
		t.Fatalf("agent model override ignored: %q", genReq.Model)
	}
	second := client.requests[researcher.Role][1]
	toolMsg := second.Messages[len(second.Messages)-1]
	if toolMsg.Role != openai.ChatMessageRoleTool || !strings.Contains(toolMsg.Content, "Jane builds compilers") {
		t.Fatalf("delegation result not fed back: %+v", toolMsg)
	}
}

func TestKickoff_UnknownCoworkerIsToolError(t *testing.T) {
	researcher := &Agent{Role: "Researcher", AllowDelegation: true}
	general := &Agent{Role: "General Assistant"}
	client := newScriptedClient()
	client.add(researcher.Role,
		call("d1", toolAskQuestion, map[string]string{"question": "?", "coworker": "Nobody"}),
		final("gave up"),
	)
	c := &Crew{Agents: []*Agent{researcher, general}, Tasks: []*Task{{Description: "x", Agent: researcher}}, Client: client}
	out, err := c.Kickoff(context.Background())
	if err != nil || out.Raw != "gave up" {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	msgs := client.requests[researcher.Role][1].Messages
	if content := msgs[len(msgs)-1].Content; !strings.Contains(content, "E_ARGS") || !strings.Contains(content, "General Assistant") {
		t.Fatalf("expected E_ARGS listing coworkers, got %s", content)
	}
}

func TestKickoff_Validation(t *testing.T) {
	client := newScriptedClient()
	a := &Agent{Role: "A", Tools: []string{"missing_tool"}}
	cases := []struct {
		name string
		crew *Crew
		want error
	}{
		{"no tasks", &Crew{Client: client}, ErrNoTasks},
		{"no agent", &Crew{Client: client, Tasks: []*Task{{Description: "x"}}}, ErrNoAgent},
	}
	for _, tc := range cases {
		if _, err := tc.crew.Kickoff(context.Background()); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
	if _, err := (&Crew{Client: client, Tasks: []*Task{{Description: "x", Agent: a}}}).Kickoff(context.Background()); err == nil {
		t.Fatalf("expected error for tools without a toolbox")
	}
	if _, err := (&Crew{Client: client, Tools: llmtools.NewRegistry(), Tasks: []*Task{{Description: "x", Agent: a}}}).Kickoff(context.Background()); err == nil || !strings.Contains(err.Error(), "missing_tool") {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
	if _, err := (&Crew{Client: client, Process: "hierarchical", Tasks: []*Task{{Agent: &Agent{Role: "B"}}}}).Kickoff(context.Background()); err == nil {
		t.Fatalf("expected unsupported process error")
	}
}

func TestKickoff_LLMFailureIsWrapped(t *testing.T) {
	a := &Agent{Role: "Researcher"}
	c := &Crew{Client: newScriptedClient(), Tasks: []*Task{{Description: "x", Agent: a}}}
	_, err := c.Kickoff(context.Background())
	if err == nil || !strings.Contains(err.Error(), "task 0 (Researcher)") {
		t.Fatalf("expected wrapped task error, got %v", err)
	}
}

func TestDecodeOutput(t *testing.T) {
	got := DecodeOutput("```json\n{\"score\": 7, \"tips\": [\"a\"]}\n```")
	m, ok := got.(map[string]any)
	if !ok || m["score"] != float64(7) {
		t.Fatalf("expected decoded object, got %#v", got)
	}
	if got := DecodeOutput("1 Keywords Analysis\n- Primary Keyword: x"); got != "1 Keywords Analysis\n- Primary Keyword: x" {
		t.Fatalf("plain text should be returned unchanged, got %#v", got)
	}
	if got := DecodeOutput(`["a","b"]`); len(got.([]any)) != 2 {
		t.Fatalf("bare JSON should decode, got %#v", got)
	}
}
