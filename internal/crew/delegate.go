package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/agentcrew/internal/llmtools"
)

const (
	toolDelegateWork = "delegate_work"
	toolAskQuestion  = "ask_question"
)

// delegationTools lets an agent hand work to, or ask, a coworker. Coworkers
// run with their own tools and cannot delegate further.
func (c *Crew) delegationTools(coworkers []*Agent) []llmtools.ToolDefinition {
	roles := make([]string, 0, len(coworkers))
	for _, a := range coworkers {
		roles = append(roles, a.Role)
	}
	list := strings.Join(roles, ", ")
	schema := func(field string) json.RawMessage {
		return json.RawMessage(fmt.Sprintf(`{
			"type":"object",
			"properties":{
				%q:{"type":"string"},
				"context":{"type":"string"},
				"coworker":{"type":"string"}
			},
			"required":[%q,"coworker"]
		}`, field, field))
	}
	return []llmtools.ToolDefinition{
		{
			Name:         toolDelegateWork,
			Version:      "v1.0.0",
			Description:  "Delegate a specific task to one of the following coworkers: " + list + ". Give all necessary context, they know nothing about the task.",
			Parameters:   schema("task"),
			Capabilities: []string{"delegate"},
			Handler:      c.delegateHandler(coworkers, "task"),
		},
		{
			Name:         toolAskQuestion,
			Version:      "v1.0.0",
			Description:  "Ask a specific question to one of the following coworkers: " + list + ". Give all necessary context, they know nothing about the question.",
			Parameters:   schema("question"),
			Capabilities: []string{"delegate"},
			Handler:      c.delegateHandler(coworkers, "question"),
		},
	}
}

func (c *Crew) delegateHandler(coworkers []*Agent, field string) llmtools.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in map[string]string
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, llmtools.ArgsError("invalid args: %v", err)
		}
		work := strings.TrimSpace(in[field])
		if work == "" {
			return nil, llmtools.ArgsError("missing %s", field)
		}
		target := findCoworker(coworkers, in["coworker"])
		if target == nil {
			names := make([]string, 0, len(coworkers))
			for _, a := range coworkers {
				names = append(names, a.Role)
			}
			return nil, llmtools.ArgsError("invalid args: unknown coworker %q, choose one of: %s", in["coworker"], strings.Join(names, ", "))
		}
		reg, err := c.registryFor(target.Tools)
		if err != nil {
			return nil, err
		}
		log.Info().Str("coworker", target.Role).Str("kind", field).Msg("delegating")
		result, err := c.runAgent(ctx, target, reg, taskPrompt(work, "", in["context"]))
		if err != nil {
			return nil, fmt.Errorf("coworker %s: %w", target.Role, err)
		}
		return json.Marshal(map[string]string{"coworker": target.Role, "result": result})
	}
}

func findCoworker(coworkers []*Agent, role string) *Agent {
	role = strings.TrimSpace(strings.Trim(role, `"'`))
	for _, a := range coworkers {
		if strings.EqualFold(a.Role, role) {
			return a
		}
	}
	return nil
}
