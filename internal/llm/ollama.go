package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"ticket-triage/pkg/config"
)

// Ollama talks to a local or remote Ollama server.
type Ollama struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

func NewOllama(cfg *config.OllamaConfig, logger *zap.Logger) (*Ollama, error) {
	base, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", cfg.Host, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: scheme and host required", cfg.Host)
	}

	logger.Info("Using Ollama model",
		zap.String("host", base.String()),
		zap.String("model", cfg.Model),
	)

	return &Ollama{
		client: api.NewClient(base, http.DefaultClient),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0,
		},
	}

	var reply strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if reply.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return reply.String(), nil
}

func (o *Ollama) Name() string { return "ollama/" + o.model }

func (o *Ollama) Close() error { return nil }
