package session

import (
	"context"
	"fmt"

	"macro-journal/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig configures the OIDC-backed session provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
}

// OIDCProvider resolves the current user from an OIDC token source. Token
// refresh happens inside the oauth2 TokenSource; a refresh that swaps the
// access token is surfaced as a TokenRefreshed event so the tracker can
// re-resolve.
type OIDCProvider struct {
	verifier *oidc.IDTokenVerifier
	tokens   oauth2.TokenSource

	events    chan Event
	lastToken string
}

func NewOIDCProvider(ctx context.Context, cfg OIDCConfig, tokens oauth2.TokenSource) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC issuer: %w", err)
	}

	return &OIDCProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		tokens:   tokens,
		events:   make(chan Event, 8),
	}, nil
}

// Events delivers lifecycle events. The channel is buffered; events are
// dropped rather than blocking the provider when nobody is listening.
func (p *OIDCProvider) Events() <-chan Event {
	return p.events
}

// CurrentUser verifies the ID token behind the token source and maps its
// subject claim to the user identity.
func (p *OIDCProvider) CurrentUser(ctx context.Context) (*models.User, error) {
	token, err := p.tokens.Token()
	if err != nil {
		p.emit(Event{Kind: SignedOut})
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}

	if p.lastToken != "" && p.lastToken != token.AccessToken {
		p.emit(Event{Kind: TokenRefreshed})
	}
	p.lastToken = token.AccessToken

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("token response carries no id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	return &models.User{ID: claims.Sub, Email: claims.Email}, nil
}

func (p *OIDCProvider) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}
