package application

import (
	"sync"

	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// ModelClientProvider enables runtime hot-swap of the chat model client.
// It holds a mutex-protected reference to the current driven.ChatModel and
// the model name, allowing API key updates to take effect without restarting
// the application.
type ModelClientProvider struct {
	mu     sync.RWMutex
	client driven.ChatModel
	model  string
}

// NewModelClientProvider creates a new provider with the given initial client
// and model name. client may be nil if no API key is available at startup.
func NewModelClientProvider(client driven.ChatModel, model string) *ModelClientProvider {
	return &ModelClientProvider{
		client: client,
		model:  model,
	}
}

// Get returns the current chat model client. Callers should check for nil if
// the provider was created without initial credentials.
func (p *ModelClientProvider) Get() driven.ChatModel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// ModelName returns the model identifier requests are sent with.
func (p *ModelClientProvider) ModelName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// Replace swaps the current client and model name. This is used when the API
// key is updated via the GUI or API; the next Get() returns the new client.
func (p *ModelClientProvider) Replace(client driven.ChatModel, model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
	p.model = model
}

// HasClient returns true if a non-nil client is currently held.
func (p *ModelClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
