package gemini

import (
	"context"
	"strings"
	"sync"
)

// MockService implements Service without network access. By default it echoes
// the input back; Respond overrides the behavior. Safe for concurrent use.
type MockService struct {
	mu      sync.Mutex
	respond func(contents []string) (string, error)
	calls   [][]string
}

// NewMockService creates a mock that replies with "You said: <input>".
func NewMockService() *MockService {
	return &MockService{
		respond: func(contents []string) (string, error) {
			return "You said: " + strings.Join(contents, "\n"), nil
		},
	}
}

// Respond replaces the reply function.
func (m *MockService) Respond(fn func(contents []string) (string, error)) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
	return m
}

// Calls returns a copy of the contents passed to each Generate call, in order.
func (m *MockService) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = append([]string(nil), c...)
	}
	return out
}

func (m *MockService) Generate(ctx context.Context, contents []string) (*Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, ErrNoContents
	}
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), contents...))
	respond := m.respond
	m.mu.Unlock()

	text, err := respond(contents)
	if err != nil {
		return nil, err
	}
	return &Generation{Text: text, Model: "mock"}, nil
}

// Compile-time interface check
var _ Service = (*MockService)(nil)
