package echoapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

// GoogleAuthenticator verifies Google sign-ins via OIDC.
type GoogleAuthenticator struct {
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

func NewGoogleAuthenticator(ctx context.Context, conf *core.Config) (*GoogleAuthenticator, error) {
	provider, err := gooidc.NewProvider(ctx, conf.OIDC.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "discovering OIDC provider")
	}

	return &GoogleAuthenticator{
		config: &oauth2.Config{
			ClientID:     conf.OIDC.ClientID,
			ClientSecret: conf.OIDC.ClientSecret,
			RedirectURL:  conf.OIDC.RedirectURL,
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&gooidc.Config{ClientID: conf.OIDC.ClientID}),
	}, nil
}

// AuthCodeURL returns the provider consent page URL and the anti-forgery
// state the caller must round-trip.
func (ga *GoogleAuthenticator) AuthCodeURL() (url, state string, err error) {
	state, err = randomState(32)
	if err != nil {
		return "", "", errors.Wrap(err, "generating state")
	}
	return ga.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), state, nil
}

// Exchange trades an authorization code for a verified federated identity.
func (ga *GoogleAuthenticator) Exchange(ctx context.Context, code string) (identity.FederatedIdentity, error) {
	token, err := ga.config.Exchange(ctx, code)
	if err != nil {
		return identity.FederatedIdentity{}, errors.Wrap(err, "exchanging code for token")
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return identity.FederatedIdentity{}, errors.New("missing id_token in token response")
	}
	idToken, err := ga.verifier.Verify(ctx, rawID)
	if err != nil {
		return identity.FederatedIdentity{}, errors.Wrap(err, "verifying id_token")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err = idToken.Claims(&claims); err != nil {
		return identity.FederatedIdentity{}, errors.Wrap(err, "parsing id_token claims")
	}

	return identity.FederatedIdentity{
		Subject:  idToken.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Verified: claims.EmailVerified,
	}, nil
}

func randomState(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
