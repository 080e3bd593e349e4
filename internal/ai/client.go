// Package ai implements the chat-completion network client used by the agent.
// It wraps the OpenAI-compatible endpoint with bounded retry on transient
// transport failures and converts malformed responses into a fixed apology
// reply instead of propagating them.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ecobot-id/ecobot/internal/config"
)

// Apology is returned in place of a reply when the endpoint answers with an
// unexpected body shape. Parse failures are not retried.
const Apology = "Maaf, saya sedang mengalami kendala teknis. Silakan coba lagi dalam beberapa saat ya! 🙏"

// Message is one chat message sent to the completion endpoint.
type Message struct {
	Role    string
	Content string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client defines the chat-completion operation used by the agent.
type Client interface {
	// ChatCompletion sends the assembled messages and returns the model's
	// reply text. Transient transport failures are retried up to the
	// configured attempt limit with linear backoff; exhausting all attempts
	// returns an error. A response with an unexpected shape returns the
	// fixed Apology string with a nil error.
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
}

type chatClient struct {
	client      *openai.Client
	logger      *slog.Logger
	model       string
	temperature float32
	maxTokens   int
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a chat-completion client for the configured endpoint.
func NewClient(cfg config.AIConfig, logger *slog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.Token)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &chatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger.With("component", "ai_client"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
	}
}

// ChatCompletion sends the messages with bounded retry.
// Delay between attempts grows linearly: attempt × backoff.
func (c *chatClient) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context error: %w", ctx.Err())
		default:
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				c.logger.WarnContext(ctx, "Chat completion returned no choices")
				return Apology, nil
			}
			content := strings.TrimSpace(resp.Choices[0].Message.Content)
			if content == "" {
				c.logger.WarnContext(ctx, "Chat completion returned empty content")
				return Apology, nil
			}
			return content, nil
		}

		if isMalformedBody(err) {
			c.logger.WarnContext(ctx, "Chat completion returned malformed body", "error", err)
			return Apology, nil
		}

		if !isTransient(err) {
			c.logger.ErrorContext(ctx, "Chat completion failed with non-transient error", "error", err)
			return "", fmt.Errorf("chat completion failed: %w", err)
		}

		lastErr = err
		c.logger.WarnContext(ctx, "Chat completion transient failure",
			"attempt", attempt, "max_attempts", c.maxAttempts, "error", err)

		if attempt < c.maxAttempts {
			timer := time.NewTimer(time.Duration(attempt) * c.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("context error: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return "", fmt.Errorf("all %d chat completion attempts failed: %w", c.maxAttempts, lastErr)
}

// isMalformedBody reports whether the error is a response-body decode
// failure. Parse failures are never retried; they yield the Apology instead.
func isMalformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// isTransient reports whether the error is worth retrying: transport-level
// failures (connection resets, timeouts) and throttling or server-side
// HTTP statuses. Anything else (auth, bad request) is permanent.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	// Everything below the HTTP layer (dial errors, resets, timeouts) comes
	// through as a wrapped url.Error.
	return true
}
