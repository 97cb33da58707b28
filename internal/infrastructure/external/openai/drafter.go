// Package openai drafts directive texts with an OpenAI chat model.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/port"
)

// Config holds the drafter settings
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for compatible gateways
}

// Drafter implements port.DirectiveDrafter
type Drafter struct {
	client  *openai.Client
	model   string
	prompts *PromptConfig
	logger  *zap.Logger
}

var languageNames = map[string]string{
	"en": "English",
	"ar": "Arabic",
}

// NewDrafter creates a new OpenAI drafter
func NewDrafter(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Drafter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Drafter{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

// DraftDirective asks the model for a directive text
func (d *Drafter) DraftDirective(ctx context.Context, in port.DraftInput) (string, error) {
	language := languageNames[in.Language]
	if language == "" {
		language = languageNames["en"]
	}

	prompt, err := renderTemplate(d.prompts.DirectiveDraft.UserTemplate, map[string]string{
		"Issuer":       in.IssuerRole.String(),
		"DelegateName": in.DelegateName,
		"Subject":      in.Subject,
		"Notes":        in.Notes,
		"Language":     language,
	})
	if err != nil {
		return "", err
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: d.prompts.DirectiveDraft.Temperature,
		MaxTokens:   d.prompts.DirectiveDraft.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: d.prompts.DirectiveDraft.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		d.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty draft from OpenAI")
	}

	d.logger.Info("Directive drafted",
		zap.String("model", d.model),
		zap.String("issuer", in.IssuerRole.String()),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return text, nil
}

var _ port.DirectiveDrafter = (*Drafter)(nil)
