package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/applyhub/identity/internal/identity/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "google"

// Provider exchanges Google authorization codes for verified identity
// assertions via OIDC id_token verification.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

func New(ctx context.Context, clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *Provider) Exchange(ctx context.Context, code string) (domain.ProviderAssertion, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return domain.ProviderAssertion{}, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return domain.ProviderAssertion{}, errors.New("google did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return domain.ProviderAssertion{}, fmt.Errorf("google id_token verification failed: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return domain.ProviderAssertion{}, fmt.Errorf("google id_token claims parse failed: %w", err)
	}

	return newAssertion(claims)
}

type idClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// newAssertion normalizes verified id_token claims. Only a
// provider-verified email may flow into reconciliation; an unverified
// claim would let anyone link themselves to an existing account by
// asserting its email.
func newAssertion(claims idClaims) (domain.ProviderAssertion, error) {
	if claims.Subject == "" {
		return domain.ProviderAssertion{}, errors.New("google id_token missing subject")
	}

	email := claims.Email
	if !claims.EmailVerified {
		email = ""
	}

	return domain.ProviderAssertion{
		SubjectID: claims.Subject,
		Email:     email,
		FullName:  claims.Name,
	}, nil
}
