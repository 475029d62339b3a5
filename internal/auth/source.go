// Package auth holds the terminal's bearer tokens and refreshes the access
// token ahead of expiry. The backend signs tokens; the terminal only reads
// the expiry claim, so parsing is unverified by design of the split.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kiwari-pos/terminal/internal/api"
)

// refreshLeeway refreshes the access token this long before it expires so
// an in-flight request never carries a token that dies mid-request.
const refreshLeeway = 30 * time.Second

// Refresher exchanges a refresh token for a new pair. Satisfied by
// *api.Client.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error)
}

// Source is a concurrency-safe api.TokenSource backed by a refresh token.
type Source struct {
	refresher Refresher

	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
}

// NewSource creates a Source from an initial token pair (from Login).
func NewSource(r Refresher, pair api.TokenPair) (*Source, error) {
	exp, err := tokenExpiry(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	return &Source{
		refresher: r,
		access:    pair.AccessToken,
		refresh:   pair.RefreshToken,
		expiry:    exp,
	}, nil
}

// Token returns a valid access token, refreshing it first if it is expired
// or about to expire. Concurrent callers serialize on the mutex so only one
// refresh is in flight.
func (s *Source) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Until(s.expiry) > refreshLeeway {
		return s.access, nil
	}

	pair, err := s.refresher.RefreshToken(ctx, s.refresh)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	exp, err := tokenExpiry(pair.AccessToken)
	if err != nil {
		return "", err
	}
	s.access = pair.AccessToken
	if pair.RefreshToken != "" {
		s.refresh = pair.RefreshToken
	}
	s.expiry = exp
	return s.access, nil
}

// tokenExpiry reads the exp claim without verifying the signature (the
// terminal has no signing secret; the backend verifies on every request).
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}
