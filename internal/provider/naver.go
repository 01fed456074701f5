package provider

import (
	"context"

	"bookshell/internal/naver"
)

// Naver wraps the Naver token client as a Connector. Naver has no separate
// server-side logout; both operations revoke the token grant.
type Naver struct {
	tokens *naver.TokenClient
}

// NewNaver creates a Naver connector.
func NewNaver(tokens *naver.TokenClient) *Naver {
	return &Naver{tokens: tokens}
}

// Name implements Connector.
func (n *Naver) Name() string { return "naver" }

// SignOut implements Connector. The Naver session belongs to the device SDK;
// server-side there is nothing to end short of revoking.
func (n *Naver) SignOut(ctx context.Context, tokens Tokens) error {
	return nil
}

// Revoke implements Connector by deleting the token grant.
func (n *Naver) Revoke(ctx context.Context, tokens Tokens) error {
	return n.tokens.Revoke(ctx, tokens.AccessToken)
}
