package llmtools

import (
    "encoding/json"
    "fmt"
    "strings"

    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/agentcrew/internal/budget"
)

const (
    keepToolMessages = 2
    maxStringInOld   = 256
)

// budgetMessagesForRequest returns a copy of messages that fits the model's
// context window. Older tool results are compressed first, then the oldest
// non-system messages are dropped until the estimate fits.
func budgetMessagesForRequest(messages []openai.ChatCompletionMessage, baseReq openai.ChatCompletionRequest) []openai.ChatCompletionMessage {
    if len(messages) == 0 {
        return nil
    }
    model := strings.TrimSpace(baseReq.Model)
    if model == "" {
        model = "gpt-4o-mini"
    }
    reserved := baseReq.MaxTokens
    if reserved <= 0 {
        reserved = 1024
    }
    out := compressOlderToolMessages(messages, keepToolMessages)

    maxPrompt := budget.RemainingContextWithHeadroom(model, reserved, 0)
    if maxPrompt <= 0 {
        if len(out) > 8 {
            return out[len(out)-8:]
        }
        return out
    }
    for len(out) > 1 && estimateMessages(out) > maxPrompt {
        if out[0].Role == openai.ChatMessageRoleSystem {
            out = append(out[:1], out[2:]...)
        } else {
            out = out[1:]
        }
    }
    return out
}

func estimateMessages(msgs []openai.ChatCompletionMessage) int {
    total := 0
    for _, m := range msgs {
        total += budget.EstimateTokens(m.Content)
    }
    return total
}

// compressOlderToolMessages returns a copy where every tool message except the
// last keepLast has its long strings truncated.
func compressOlderToolMessages(messages []openai.ChatCompletionMessage, keepLast int) []openai.ChatCompletionMessage {
    var idx []int
    for i, m := range messages {
        if m.Role == openai.ChatMessageRoleTool {
            idx = append(idx, i)
        }
    }
    out := append([]openai.ChatCompletionMessage(nil), messages...)
    for n := 0; n < len(idx)-keepLast; n++ {
        out[idx[n]].Content = compressToolContent(out[idx[n]].Content)
    }
    return out
}

func compressToolContent(content string) string {
    var v any
    if err := json.Unmarshal([]byte(content), &v); err != nil {
        return truncateText(content, maxStringInOld)
    }
    v = compressJSONNode(v, maxStringInOld)
    if m, ok := v.(map[string]any); ok {
        m["compressed"] = true
    }
    b, err := json.Marshal(v)
    if err != nil {
        return truncateText(content, maxStringInOld)
    }
    return string(b)
}

func compressJSONNode(v any, maxLen int) any {
    switch t := v.(type) {
    case string:
        return truncateText(t, maxLen)
    case map[string]any:
        out := make(map[string]any, len(t))
        for k, vv := range t {
            if strings.EqualFold(k, "id") || k == "source_url" {
                out[k] = vv
                continue
            }
            out[k] = compressJSONNode(vv, maxLen)
        }
        return out
    case []any:
        out := make([]any, len(t))
        for i, vv := range t {
            out[i] = compressJSONNode(vv, maxLen)
        }
        return out
    }
    return v
}

func truncateText(s string, maxLen int) string {
    if len(s) <= maxLen {
        return s
    }
    keep := maxLen - 56
    if keep <= 0 {
        keep = maxLen
    }
    // Avoid splitting a multi-byte rune.
    for keep > 0 && keep < len(s) && (s[keep]&0xC0) == 0x80 {
        keep--
    }
    return s[:keep] + fmt.Sprintf("… (%d chars, truncated)", len(s))
}
