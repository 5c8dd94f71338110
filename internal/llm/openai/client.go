package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

var errNoChoices = errors.New("no choices in openai response")

// Complete implements llm.Completer with a single JSON-mode chat completion.
// There is no retry; callers already have a deterministic fallback.
func (c *Client) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("llm.openai.rate_wait_aborted", "req_id", rid, "error", err)
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	c.logger.Debug("llm.openai.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(p.System)+len(p.User),
	)

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: p.System},
			{Role: goopenai.ChatMessageRoleUser, Content: p.User + "\n\nReturn ONLY the JSON object."},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		status := 0
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		c.logger.Error("llm.openai.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", errNoChoices
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("llm.openai.response",
		"req_id", rid,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
