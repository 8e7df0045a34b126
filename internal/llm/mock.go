package llm

import "context"

// MockResponse is the canned extraction returned in mock mode.
const MockResponse = `{"summary": "Mock summary of the ticket.", "category": "Bug", "severity": "High"}`

// Mock answers every prompt with a fixed reply without calling a model.
type Mock struct {
	Reply string
}

func NewMock() *Mock {
	return &Mock{Reply: MockResponse}
}

func (m *Mock) Complete(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Reply, nil
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Close() error { return nil }
