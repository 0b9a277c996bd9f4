// Package provider holds the adapter contract between the authorization core
// and external identity providers. Each adapter exposes only the two calls
// the core needs: building the provider authorization URL and exchanging the
// provider's code for a normalized profile.
package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
)

// Adapter is implemented per provider.
type Adapter interface {
	GetAuthURL(ctx context.Context, authCtx oauth.AuthContext) (string, error)
	ExchangeCode(ctx context.Context, code string) (*oauth.Profile, error)
}

// Registry maps provider names (case-insensitive) to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register installs an adapter under the provider name.
func (r *Registry) Register(name string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(strings.TrimSpace(name))] = adapter
}

// Adapter resolves the adapter for a provider name.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return adapter, ok
}
