// Package provider models the social identity providers behind the app's
// sign-in buttons. Each provider implements Connector; callers select one
// through a Registry lookup instead of branching on provider names.
package provider

import (
	"context"
	"errors"
	"strings"
)

// Tokens carries whatever provider-side credentials are available for a
// sign-out or revoke call. Fields a provider does not need stay empty.
type Tokens struct {
	AccessToken    string
	RefreshToken   string
	ProviderUserID string
}

// Connector is one social provider's server-side surface. SignOut ends the
// provider session; Revoke fully de-authorizes the app for the user.
type Connector interface {
	Name() string
	SignOut(ctx context.Context, tokens Tokens) error
	Revoke(ctx context.Context, tokens Tokens) error
}

// ErrUnknownProvider is returned for providers without a registered connector.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry maps provider names to connectors.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry builds a registry from the given connectors.
func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector, len(connectors))}
	for _, c := range connectors {
		r.connectors[c.Name()] = c
	}
	return r
}

// Get returns the connector for the provider name.
func (r *Registry) Get(name string) (Connector, error) {
	c, ok := r.connectors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return c, nil
}

// Names lists the registered providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	return names
}

// cancelSubstrings are provider-reported markers of a user aborting the
// sign-in flow. Matching errors are suppressed rather than surfaced.
var cancelSubstrings = []string{
	"sign_in_cancelled",
	"user cancelled",
	"user canceled",
	"user_cancel",
	"access_denied",
	"12501", // Google Play Services cancellation status
}

// IsUserCancellation reports whether the provider error message describes the
// user backing out of the flow.
func IsUserCancellation(message string) bool {
	lowered := strings.ToLower(message)
	for _, marker := range cancelSubstrings {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
