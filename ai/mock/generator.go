package mock

import (
	"context"
	"sync"

	"github.com/poiesic/memvault/ai"
)

// DefaultResponse is what MockGenerator returns when no CompleteFunc is set.
const DefaultResponse = "mock answer"

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, messages []ai.Message) (string, error)

	mu           sync.Mutex
	callCount    int
	lastMessages []ai.Message
}

// NewMockGenerator creates a mock generator that answers DefaultResponse.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Complete records the messages and returns the injected or default answer.
func (m *MockGenerator) Complete(ctx context.Context, messages []ai.Message) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastMessages = append([]ai.Message(nil), messages...)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return DefaultResponse, nil
}

// CallCount returns the number of Complete calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastMessages returns the messages of the latest Complete call.
func (m *MockGenerator) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMessages
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastMessages = nil
	m.CompleteFunc = nil
}
