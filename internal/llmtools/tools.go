package llmtools

import (
    "encoding/json"
    "errors"
    "fmt"
    "reflect"
    "regexp"
    "strings"

    openai "github.com/sashabaranov/go-openai"
)

// ToolSpec is one function exposed to the model.
type ToolSpec struct {
    Name        string          `json:"name"`
    Description string          `json:"description"`
    JSONSchema  json.RawMessage `json:"json_schema"`
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
    ID        string
    Name      string
    Arguments json.RawMessage
}

// EncodeTools converts specs into the OpenAI tools array.
func EncodeTools(specs []ToolSpec) []openai.Tool {
    out := make([]openai.Tool, 0, len(specs))
    for _, s := range specs {
        out = append(out, openai.Tool{
            Type: openai.ToolTypeFunction,
            Function: &openai.FunctionDefinition{
                Name:        s.Name,
                Description: s.Description,
                Parameters:  s.JSONSchema,
            },
        })
    }
    return out
}

// ParseToolCalls returns the function calls of the first choice.
func ParseToolCalls(resp openai.ChatCompletionResponse) []ToolCall {
    if len(resp.Choices) == 0 {
        return nil
    }
    var out []ToolCall
    for _, tc := range resp.Choices[0].Message.ToolCalls {
        if tc.Type != openai.ToolTypeFunction {
            continue
        }
        args := strings.TrimSpace(tc.Function.Arguments)
        if args == "" {
            args = "{}"
        }
        out = append(out, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: json.RawMessage(args)})
    }
    return out
}

var (
    fencedFinalRe = regexp.MustCompile("(?s)```\\s*final\\r?\\n(.*?)```")
    xmlFinalRe    = regexp.MustCompile("(?s)<final>(.*?)</final>")
)

// ParseHarmony splits a response into a final answer or pending tool calls.
// Tool calls win over content. Otherwise a ```final fence or <final> tag is
// preferred, and the whole message content is the fallback.
func ParseHarmony(resp openai.ChatCompletionResponse) (string, []ToolCall) {
    if calls := ParseToolCalls(resp); len(calls) > 0 {
        return "", calls
    }
    if len(resp.Choices) == 0 {
        return "", nil
    }
    content := resp.Choices[0].Message.Content
    if final, ok := markedFinal(content); ok {
        return final, nil
    }
    return strings.TrimSpace(content), nil
}

func markedFinal(content string) (string, bool) {
    if m := fencedFinalRe.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
        return strings.TrimSpace(m[1]), true
    }
    if m := xmlFinalRe.FindStringSubmatch(content); m != nil {
        return strings.TrimSpace(m[1]), true
    }
    return "", false
}

// ContentForLogging returns a log-safe view of a response. Unless allowCOT is
// set only explicitly marked final answers are returned.
func ContentForLogging(resp openai.ChatCompletionResponse, allowCOT bool) string {
    if len(resp.Choices) == 0 {
        return ""
    }
    if allowCOT {
        return strings.TrimSpace(resp.Choices[0].Message.Content)
    }
    if len(ParseToolCalls(resp)) > 0 {
        return "(tool_calls present; CoT redacted)"
    }
    if final, ok := markedFinal(resp.Choices[0].Message.Content); ok {
        return final
    }
    return "(CoT redacted)"
}

// validateAgainstSchema checks value against the small JSON Schema subset the
// tool contracts use: type, properties, required, additionalProperties
// (boolean), items and enum.
func validateAgainstSchema(value any, schema json.RawMessage) error {
    if len(schema) == 0 {
        return nil
    }
    var s map[string]any
    if err := json.Unmarshal(schema, &s); err != nil {
        return fmt.Errorf("schema: %w", err)
    }
    return validateNode(value, s, "")
}

func validateNode(value any, s map[string]any, path string) error {
    where := func(msg string) error {
        if path == "" {
            return errors.New(msg)
        }
        return fmt.Errorf("%s: %s", path, msg)
    }
    if enum, ok := s["enum"].([]any); ok {
        found := false
        for _, e := range enum {
            if reflect.DeepEqual(e, value) {
                found = true
                break
            }
        }
        if !found {
            return where("value not in enum")
        }
    }
    typ, _ := s["type"].(string)
    switch typ {
    case "", "object":
        obj, ok := value.(map[string]any)
        if !ok {
            return where("expected object")
        }
        if req, ok := s["required"].([]any); ok {
            for _, r := range req {
                if name, ok := r.(string); ok {
                    if _, present := obj[name]; !present {
                        return where("missing required field " + name)
                    }
                }
            }
        }
        props, _ := s["properties"].(map[string]any)
        strict := false
        if ap, ok := s["additionalProperties"].(bool); ok && !ap {
            strict = true
        }
        for k, v := range obj {
            sub, ok := props[k].(map[string]any)
            if !ok {
                if strict {
                    return where("additional property not allowed: " + k)
                }
                continue
            }
            if err := validateNode(v, sub, joinPath(path, k)); err != nil {
                return err
            }
        }
    case "array":
        arr, ok := value.([]any)
        if !ok {
            return where("expected array")
        }
        if items, ok := s["items"].(map[string]any); ok {
            for i, elem := range arr {
                if err := validateNode(elem, items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
                    return err
                }
            }
        }
    case "string":
        if _, ok := value.(string); !ok {
            return where("expected string")
        }
    case "integer":
        f, ok := value.(float64)
        if !ok || f != float64(int64(f)) {
            return where("expected integer")
        }
    case "number":
        if _, ok := value.(float64); !ok {
            return where("expected number")
        }
    case "boolean":
        if _, ok := value.(bool); !ok {
            return where("expected boolean")
        }
    case "null":
        if value != nil {
            return where("expected null")
        }
    }
    return nil
}

func joinPath(base, key string) string {
    if base == "" {
        return key
    }
    return base + "." + key
}
