package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// Retrying wraps a Client and retries transient failures (rate limits,
// server errors, transport errors) with exponential backoff.
type Retrying struct {
	Inner Client
	// MaxTries includes the initial attempt. Zero means 3.
	MaxTries uint
	// InitialInterval is the first backoff delay. Zero means 500ms.
	InitialInterval time.Duration
	// MaxElapsed bounds the total retry window. Zero means 60s.
	MaxElapsed time.Duration
}

func (r *Retrying) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	tries := r.MaxTries
	if tries == 0 {
		tries = 3
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	if r.InitialInterval > 0 {
		bo.InitialInterval = r.InitialInterval
	}
	elapsed := 60 * time.Second
	if r.MaxElapsed > 0 {
		elapsed = r.MaxElapsed
	}

	attempt := 0
	operation := func() (openai.ChatCompletionResponse, error) {
		attempt++
		resp, err := r.Inner.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return resp, backoff.Permanent(err)
		}
		log.Debug().Err(err).Int("attempt", attempt).Str("model", req.Model).Msg("chat completion failed; retrying")
		return resp, err
	}
	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(tries), backoff.WithMaxElapsedTime(elapsed))
}

// IsTransient reports whether a provider error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	// Anything else is a transport failure before a response arrived.
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
