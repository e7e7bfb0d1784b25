package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type flakyClient struct {
	errs  []error
	calls int
}

func (f *flakyClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "ok"}}},
	}, nil
}

func TestRetrying_RetriesTransient(t *testing.T) {
	inner := &flakyClient{errs: []error{
		&openai.APIError{HTTPStatusCode: 429, Message: "slow down"},
		&openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")},
	}}
	r := &Retrying{Inner: inner, MaxTries: 3, InitialInterval: time.Millisecond}
	resp, err := r.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{Model: "m"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
	if resp.Choices[0].Message.Content != "ok" {
		t.Fatalf("unexpected content: %q", resp.Choices[0].Message.Content)
	}
}

func TestRetrying_PermanentStopsImmediately(t *testing.T) {
	inner := &flakyClient{errs: []error{&openai.APIError{HTTPStatusCode: 401, Message: "bad key"}}}
	r := &Retrying{Inner: inner, MaxTries: 5, InitialInterval: time.Millisecond}
	_, err := r.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{Model: "m"})
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != 401 {
		t.Fatalf("expected the 401 API error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single call, got %d", inner.calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&openai.APIError{HTTPStatusCode: 500}, true},
		{&openai.APIError{HTTPStatusCode: 400}, false},
		{errors.New("connection reset"), true},
	}
	for i, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("case %d: IsTransient(%v)=%v want %v", i, tc.err, got, tc.want)
		}
	}
}
