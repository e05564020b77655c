package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// Client implements ports.Generator against the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a generator bound to one Anthropic model.
func NewClient(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}, nil
}

// Generate sends the prompt and returns the generated text. Transport and
// server-side failures are classified into the engine's error taxonomy:
// rate limits, 5xx and timeouts wrap domain.ErrTransient, everything else
// wraps domain.ErrPermanent.
func (c *Client) Generate(ctx context.Context, req *ports.GenerationRequest) (*ports.GenerationResult, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, c.classify(req.TaskKey, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	tokensUsed := int(message.Usage.InputTokens + message.Usage.OutputTokens)

	c.logger.Debug("generation completed",
		zap.String("task_key", req.TaskKey),
		zap.String("model", c.model),
		zap.Int("tokens_used", tokensUsed),
		zap.Duration("duration", time.Since(start)))

	return &ports.GenerationResult{
		Text:       text.String(),
		TokensUsed: tokensUsed,
	}, nil
}

// classify maps an API error onto the engine's retry taxonomy.
func (c *Client) classify(taskKey string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("anthropic call for %s timed out: %w", taskKey, domain.ErrTransient)
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode >= 500 {
			return fmt.Errorf("anthropic call for %s failed with status %d: %w",
				taskKey, apierr.StatusCode, domain.ErrTransient)
		}
		return fmt.Errorf("anthropic call for %s rejected with status %d: %w",
			taskKey, apierr.StatusCode, domain.ErrPermanent)
	}

	// Unclassified transport errors are worth one retry cycle.
	return fmt.Errorf("anthropic call for %s failed: %v: %w", taskKey, err, domain.ErrTransient)
}
