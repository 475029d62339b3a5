package api

import (
	"context"
	"net/http"
)

// TokenPair is an access/refresh token pair issued by the backend.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair. Issued without a bearer
// token: the auth source does not exist yet when this runs.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}
	return c.tokenRequest(ctx, "/auth/login", body)
}

// RefreshToken exchanges a refresh token for a new pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}
	return c.tokenRequest(ctx, "/auth/refresh", body)
}

// tokenRequest bypasses the token source: attaching a bearer here would
// recurse into the refresh path.
func (c *Client) tokenRequest(ctx context.Context, path string, body any) (TokenPair, error) {
	bare := &Client{baseURL: c.baseURL, http: c.http}
	var pair TokenPair
	if err := bare.do(ctx, http.MethodPost, path, body, &pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
