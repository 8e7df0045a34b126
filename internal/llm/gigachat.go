package llm

import (
	"context"
	"fmt"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"

	"ticket-triage/pkg/config"
)

// GigaChat calls Sber's GigaChat API.
type GigaChat struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	name   string
}

func NewGigaChat(cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChat, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(context.Background(), cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = "You classify customer support tickets. Answer with a single JSON object and nothing else."
	model.Temperature = 0

	logger.Info("Using GigaChat model", zap.String("model", cfg.Model))

	return &GigaChat{client: client, model: model, name: "gigachat/" + cfg.Model}, nil
}

func (g *GigaChat) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("gigachat generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *GigaChat) Name() string { return g.name }

func (g *GigaChat) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}
