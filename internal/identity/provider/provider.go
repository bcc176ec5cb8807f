package provider

import (
	"context"
	"fmt"

	"github.com/applyhub/identity/internal/identity/domain"
)

// Provider is the contract every external identity provider adapter
// implements. Adapters verify the provider exchange and return identity
// facts only; account creation, linking and session management stay out.
type Provider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the provider authorization URL. State is
	// provided by the caller and round-trips through the provider.
	AuthCodeURL(state string) string

	// Exchange redeems the authorization code and returns a normalized
	// assertion. Implementations must only populate the email from
	// provider-verified claims.
	Exchange(ctx context.Context, code string) (domain.ProviderAssertion, error)
}

// Registry holds the configured providers by name. It performs no auth
// logic itself.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider by name or an error if not registered.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown identity provider: %s", name)
	}
	return p, nil
}
