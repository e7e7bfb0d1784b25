// Package crew runs a sequence of tasks, each handled by an LLM-backed agent
// that may call tools and consult coworkers.
package crew

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/agentcrew/internal/llm"
	"github.com/hyperifyio/agentcrew/internal/llmtools"
)

var (
	ErrNoTasks = errors.New("crew: no tasks")
	ErrNoAgent = errors.New("crew: task has no agent")
)

// Process selects how tasks are scheduled. Only sequential is supported.
type Process string

const Sequential Process = "sequential"

// Agent is a persona with a goal and a set of tool names.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
	// Tools names entries of the crew's toolbox.
	Tools           []string
	AllowDelegation bool
	// Model overrides the crew model for this agent.
	Model string
}

// Task is one unit of work for an agent.
type Task struct {
	Description    string
	ExpectedOutput string
	Agent          *Agent
	// Tools, when non-empty, replaces the agent's tools for this task.
	Tools []string
	// Context tasks have their outputs given to this task. When empty the
	// previous task's output is used.
	Context []*Task
}

type TaskOutput struct {
	Description string `json:"description"`
	Agent       string `json:"agent"`
	Raw         string `json:"raw"`
}

type CrewOutput struct {
	Raw   string       `json:"raw"`
	Tasks []TaskOutput `json:"tasks_output"`
}

// Crew binds agents and tasks to a chat model and a toolbox.
type Crew struct {
	Agents  []*Agent
	Tasks   []*Task
	Process Process
	Client  llm.Client
	// Tools is the toolbox agents draw from. May be nil when no agent uses tools.
	Tools       *llmtools.Registry
	Model       string
	Temperature float32
	MaxTokens   int

	MaxToolCalls   int
	MaxWallClock   time.Duration
	PerToolTimeout time.Duration
}

func (c *Crew) validate() error {
	if len(c.Tasks) == 0 {
		return ErrNoTasks
	}
	if c.Process != "" && c.Process != Sequential {
		return fmt.Errorf("crew: unsupported process %q", c.Process)
	}
	if c.Client == nil {
		return errors.New("crew: no LLM client")
	}
	for i, t := range c.Tasks {
		if t == nil || t.Agent == nil {
			return fmt.Errorf("task %d: %w", i, ErrNoAgent)
		}
		if _, err := c.registryFor(t.toolNames()); err != nil {
			return fmt.Errorf("task %d (%s): %w", i, t.Agent.Role, err)
		}
	}
	return nil
}

func (t *Task) toolNames() []string {
	if len(t.Tools) > 0 {
		return t.Tools
	}
	return t.Agent.Tools
}

// Kickoff runs the tasks in order and returns the last task's output as the
// crew result.
func (c *Crew) Kickoff(ctx context.Context) (CrewOutput, error) {
	if err := c.validate(); err != nil {
		return CrewOutput{}, err
	}
	outputs := make(map[*Task]string, len(c.Tasks))
	var out CrewOutput
	prev := ""
	for i, t := range c.Tasks {
		started := time.Now()
		log.Info().Int("task", i).Str("agent", t.Agent.Role).Msg("task started")

		raw, err := c.runTask(ctx, t, c.taskContext(t, outputs, prev))
		if err != nil {
			return out, fmt.Errorf("task %d (%s): %w", i, t.Agent.Role, err)
		}
		outputs[t] = raw
		prev = raw
		out.Tasks = append(out.Tasks, TaskOutput{Description: t.Description, Agent: t.Agent.Role, Raw: raw})
		log.Info().Int("task", i).Str("agent", t.Agent.Role).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Int("output_bytes", len(raw)).
			Msg("task completed")
	}
	out.Raw = prev
	return out, nil
}

func (c *Crew) taskContext(t *Task, outputs map[*Task]string, prev string) string {
	if len(t.Context) == 0 {
		return prev
	}
	parts := make([]string, 0, len(t.Context))
	for _, ct := range t.Context {
		if o, ok := outputs[ct]; ok && o != "" {
			parts = append(parts, o)
		}
	}
	return strings.Join(parts, "\n\n----------\n\n")
}

func (c *Crew) runTask(ctx context.Context, t *Task, taskCtx string) (string, error) {
	reg, err := c.registryFor(t.toolNames())
	if err != nil {
		return "", err
	}
	if t.Agent.AllowDelegation {
		if coworkers := c.coworkers(t.Agent); len(coworkers) > 0 {
			for _, def := range c.delegationTools(coworkers) {
				if err := reg.Register(def); err != nil {
					return "", err
				}
			}
		}
	}
	return c.runAgent(ctx, t.Agent, reg, taskPrompt(t.Description, t.ExpectedOutput, taskCtx))
}

func (c *Crew) runAgent(ctx context.Context, a *Agent, reg *llmtools.Registry, user string) (string, error) {
	model := a.Model
	if model == "" {
		model = c.Model
	}
	perTool := c.PerToolTimeout
	if perTool <= 0 {
		// Delegation and image tools run for much longer than a fetch.
		perTool = 2 * time.Minute
	}
	orch := &llmtools.Orchestrator{
		Client:         c.Client,
		Registry:       reg,
		MaxToolCalls:   c.MaxToolCalls,
		MaxWallClock:   c.MaxWallClock,
		PerToolTimeout: perTool,
		Label:          a.Role,
	}
	req := openai.ChatCompletionRequest{Model: model, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
	final, _, err := orch.Run(ctx, req, systemPrompt(a), user, nil)
	if err != nil {
		return "", err
	}
	return final, nil
}

func (c *Crew) registryFor(names []string) (*llmtools.Registry, error) {
	if len(names) == 0 {
		return llmtools.NewRegistry(), nil
	}
	if c.Tools == nil {
		return nil, fmt.Errorf("tools %v requested but the crew has no toolbox", names)
	}
	return c.Tools.Subset(names...)
}

func (c *Crew) coworkers(self *Agent) []*Agent {
	var out []*Agent
	for _, a := range c.Agents {
		if a != nil && a != self {
			out = append(out, a)
		}
	}
	return out
}

func systemPrompt(a *Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\nYour personal goal is: %s", a.Role, strings.TrimSpace(a.Backstory), strings.TrimSpace(a.Goal))
	b.WriteString("\nWhen you have the final answer, reply with the complete answer only.")
	return b.String()
}

func taskPrompt(description, expected, taskCtx string) string {
	var b strings.Builder
	b.WriteString("Current Task: ")
	b.WriteString(strings.TrimSpace(description))
	if expected = strings.TrimSpace(expected); expected != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(expected)
	}
	b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")
	if taskCtx = strings.TrimSpace(taskCtx); taskCtx != "" {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(taskCtx)
	}
	return b.String()
}

// DecodeOutput strips a ```json fence from raw and decodes it. Output that is
// not valid JSON is returned unchanged as a string.
func DecodeOutput(raw string) any {
	cleaned := strings.ReplaceAll(raw, "```json\n", "")
	cleaned = strings.ReplaceAll(cleaned, "\n```", "")
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return raw
	}
	return v
}
