package strava

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
)

// Endpoint is the provider's OAuth 2.0 endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// OAuth wraps the provider's authorization-code flow.
type OAuth struct {
	cfg *oauth2.Config

	mu         sync.Mutex
	refreshing map[string]*sync.Mutex
}

// NewOAuth builds the OAuth helper from app credentials.
func NewOAuth(clientID, clientSecret, redirectURI string) *OAuth {
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     Endpoint,
			Scopes:       []string{"read,activity:read_all"},
		},
		refreshing: map[string]*sync.Mutex{},
	}
}

// AuthorizeURL returns the provider consent URL for the browser redirect.
func (o *OAuth) AuthorizeURL(state string) string {
	return o.cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
		oauth2.SetAuthURLParam("response_type", "code"))
}

// ExchangeCode trades an authorization code for tokens. The provider
// attaches the athlete record to the token response; its id identifies
// the account to link.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenBundle, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	bundle := bundleFromToken(tok)
	if athlete, ok := tok.Extra("athlete").(map[string]any); ok {
		if id, ok := athlete["id"].(float64); ok {
			bundle.AthleteID = int64(id)
		}
	}
	return bundle, nil
}

// Refresh posts the refresh grant and returns the replacement credential
// triple. A failure here is fatal to the caller; there is no silent retry.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	src := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	bundle := bundleFromToken(tok)
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}

// ScopeFromCallback extracts the granted scope from the callback query.
// The provider reports scope on the redirect, not in the token response.
func ScopeFromCallback(query url.Values) string {
	return query.Get("scope")
}

func bundleFromToken(tok *oauth2.Token) *TokenBundle {
	return &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
}
