// Package providers implements embedding service providers for the
// chunking engine. Providers convert batches of text into fixed-dimension
// vector representations; the registration system lets new providers be
// added while the rest of the system keeps a single interface.
package providers

import (
	"context"
	"fmt"
	"sync"
)

// Embedder converts a batch of texts into vector representations. The
// returned slice has one vector per input, in input order.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension returns the size of the vectors the current model
	// produces.
	Dimension() (int, error)
}

// EmbedderFactory is a function type that creates a new Embedder from
// loose configuration.
type EmbedderFactory func(config map[string]interface{}) (Embedder, error)

var (
	embedderFactories = make(map[string]EmbedderFactory)
	mu                sync.RWMutex
)

// RegisterEmbedder registers a new embedder factory under the given name,
// overwriting any previous registration.
func RegisterEmbedder(name string, factory EmbedderFactory) {
	mu.Lock()
	defer mu.Unlock()
	embedderFactories[name] = factory
}

// GetEmbedderFactory returns the factory for the given embedder name.
func GetEmbedderFactory(name string) (EmbedderFactory, error) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := embedderFactories[name]
	if !ok {
		return nil, fmt.Errorf("embedder not found: %s", name)
	}
	return factory, nil
}

// ListEmbedders returns the names of all registered embedder factories.
func ListEmbedders() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(embedderFactories))
	for name := range embedderFactories {
		names = append(names, name)
	}
	return names
}
