// Package llm wraps the chat models used for ticket field extraction.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ticket-triage/pkg/config"
)

// ErrEmptyResponse is returned when a model answers without any choices.
var ErrEmptyResponse = errors.New("no response from LLM")

// ChatModel sends a single user prompt and returns the model's reply text.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider and model, e.g. "ollama/llama2".
	Name() string
	Close() error
}

// New builds the chat model selected by configuration. Mock mode wins over
// the provider setting.
func New(cfg *config.Config, logger *zap.Logger) (ChatModel, error) {
	if cfg.LLM.UseMock {
		logger.Warn("Mock LLM enabled, ticket fields will be canned")
		return NewMock(), nil
	}

	switch cfg.LLM.Provider {
	case "ollama":
		return NewOllama(&cfg.Ollama, logger)
	case "gigachat":
		return NewGigaChat(&cfg.GigaChat, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
