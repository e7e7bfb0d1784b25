package llmtools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/agentcrew/internal/llm"
)

// Stable error codes placed in tool error envelopes.
const (
	CodeArgs         = "E_ARGS"
	CodeTimeout      = "E_TIMEOUT"
	CodeNotFound     = "E_NOT_FOUND"
	CodePolicy       = "E_POLICY"
	CodeUnknownTool  = "E_UNKNOWN_TOOL"
	CodeResultSchema = "E_RESULT_SCHEMA"
	CodeTool         = "E_TOOL"
)

// ErrWallClock is returned when a Run exceeds MaxWallClock.
var ErrWallClock = errors.New("orchestrator: wall-clock budget exceeded")

// ToolError lets a handler choose the error code reported to the model.
type ToolError struct {
	Code string
	Msg  string
}

func (e *ToolError) Error() string { return e.Msg }

// ArgsError reports unusable tool arguments.
func ArgsError(format string, a ...any) error {
	return &ToolError{Code: CodeArgs, Msg: fmt.Sprintf(format, a...)}
}

// Orchestrator runs a tool-calling chat loop: it offers the registry's tools,
// executes requested calls, feeds results back as role=tool messages and stops
// at the first assistant turn without tool calls.
type Orchestrator struct {
	Client   llm.Client
	Registry *Registry
	// MaxToolCalls caps tool executions per Run. Zero means 32.
	MaxToolCalls int
	// MaxWallClock bounds the whole Run. Zero means only ctx applies.
	MaxWallClock time.Duration
	// PerToolTimeout bounds one handler. Zero means 10s.
	PerToolTimeout time.Duration
	// Label is added to trace lines, typically the agent role.
	Label string
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	OK         bool           `json:"ok"`
	Tool       string         `json:"tool"`
	Data       any            `json:"data,omitempty"`
	Error      *envelopeError `json:"error,omitempty"`
	Compressed bool           `json:"compressed,omitempty"`
}

func failure(tool, code, msg string) envelope {
	return envelope{Tool: tool, Error: &envelopeError{Code: code, Message: msg}}
}

// Run executes the loop. baseReq supplies the model and sampling settings;
// Messages and Tools are managed here. It returns the final answer and the
// full transcript.
func (o *Orchestrator) Run(ctx context.Context, baseReq openai.ChatCompletionRequest, system, user string, extra []openai.ChatCompletionMessage) (string, []openai.ChatCompletionMessage, error) {
	if o.Client == nil {
		return "", nil, errors.New("orchestrator: Client is nil")
	}
	reg := o.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2+len(extra))
	if system != "" {
		if afford := buildPromptAffordances(reg); afford != "" {
			system += "\n\n" + afford
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
	messages = append(messages, extra...)

	tools := EncodeTools(reg.Specs())
	var deadline time.Time
	if o.MaxWallClock > 0 {
		deadline = time.Now().Add(o.MaxWallClock)
	}
	maxCalls := o.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = 32
	}
	used := 0

	for {
		reqCtx, cancel, err := o.withDeadline(ctx, deadline)
		if err != nil {
			return "", messages, err
		}
		req := baseReq
		req.Messages = budgetMessagesForRequest(messages, baseReq)
		if len(tools) > 0 {
			req.Tools = tools
		}
		resp, err := o.Client.CreateChatCompletion(reqCtx, req)
		cancel()
		if err != nil {
			return "", messages, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", messages, errors.New("orchestrator: empty choices from model")
		}
		messages = append(messages, resp.Choices[0].Message)

		final, calls := ParseHarmony(resp)
		if len(calls) == 0 {
			log.Debug().Str("agent", o.Label).Str("final", ContentForLogging(resp, false)).Msg("final answer")
			return final, messages, nil
		}
		if used+len(calls) > maxCalls {
			return "", messages, fmt.Errorf("orchestrator: max tool calls exceeded: used=%d, pending=%d, max=%d", used, len(calls), maxCalls)
		}
		for _, call := range calls {
			content, err := o.execute(ctx, reg, call, deadline)
			if err != nil {
				return "", messages, err
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    content,
			})
			used++
		}
		messages = compressOlderToolMessages(messages, 2)
	}
}

func (o *Orchestrator) withDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc, error) {
	if deadline.IsZero() {
		return ctx, func() {}, nil
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return nil, nil, ErrWallClock
	}
	c, cancel := context.WithTimeout(ctx, remain)
	return c, cancel, nil
}

// execute runs one call and returns the tool message content. Only the
// wall-clock budget aborts the loop; every other failure becomes an envelope.
func (o *Orchestrator) execute(ctx context.Context, reg *Registry, call ToolCall, deadline time.Time) (string, error) {
	started := time.Now()
	sum := sha256.Sum256(call.Arguments)

	env := o.dispatch(ctx, reg, call, deadline)
	if env == nil {
		return "", ErrWallClock
	}
	b, err := json.Marshal(env)
	if err != nil {
		b, _ = json.Marshal(failure(call.Name, CodeTool, "result not encodable: "+err.Error()))
	}

	log.Info().
		Str("stage", "tool").
		Str("agent", o.Label).
		Str("tool", call.Name).
		Str("tool_call_id", call.ID).
		Str("args_hash", hex.EncodeToString(sum[:])).
		Int("args_bytes", len(call.Arguments)).
		Int("result_bytes", len(b)).
		Bool("ok", env.OK).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("tool call")
	return string(b), nil
}

func (o *Orchestrator) dispatch(ctx context.Context, reg *Registry, call ToolCall, deadline time.Time) *envelope {
	def, ok := reg.Get(call.Name)
	if !ok {
		env := failure(call.Name, CodeUnknownTool, "unknown tool")
		return &env
	}

	var args any
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		env := failure(call.Name, CodeArgs, "invalid args: arguments are not JSON")
		return &env
	}
	if err := validateAgainstSchema(args, def.Parameters); err != nil {
		env := failure(call.Name, CodeArgs, "invalid args: "+scrubString(err.Error()))
		return &env
	}

	timeout := o.PerToolTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if !deadline.IsZero() {
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil
		}
		if remain < timeout {
			timeout = remain
		}
	}
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	raw, err := def.Handler(toolCtx, call.Arguments)
	cancel()
	if err != nil {
		env := failure(call.Name, classifyToolError(err), scrubString(err.Error()))
		return &env
	}

	var val any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &val); err != nil {
			env := failure(call.Name, CodeTool, "tool returned invalid JSON")
			return &env
		}
	}
	if len(def.ResultSchema) > 0 {
		if err := validateAgainstSchema(val, def.ResultSchema); err != nil {
			env := failure(call.Name, CodeResultSchema, "tool result failed schema validation: "+err.Error())
			return &env
		}
	}
	return &envelope{OK: true, Tool: call.Name, Data: scrubValue(val)}
}

// classifyToolError maps handler errors to stable codes.
func classifyToolError(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid args"), strings.HasPrefix(msg, "missing "):
		return CodeArgs
	case strings.Contains(msg, "not found"):
		return CodeNotFound
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return CodeTimeout
	case strings.Contains(msg, "forbidden"), strings.Contains(msg, "disallow"):
		return CodePolicy
	}
	return CodeTool
}

// buildPromptAffordances lists the tools and the error envelope shape so the
// model knows how to call them.
func buildPromptAffordances(r *Registry) string {
	names := r.Names()
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Tools available:\n")
	for _, name := range names {
		def, _ := r.Get(name)
		fmt.Fprintf(&b, "- %s (%s): %s\n", def.Name, def.Version, def.Description)
	}
	b.WriteString("Use tools via tool_calls only, with minimal valid JSON args.\n")
	b.WriteString("Results arrive as {'ok':true,'data':...} or {'ok':false,'error':{'code','message'}}. ")
	b.WriteString("Codes: E_ARGS, E_TIMEOUT, E_NOT_FOUND, E_POLICY, E_UNKNOWN_TOOL, E_TOOL.")
	return b.String()
}
