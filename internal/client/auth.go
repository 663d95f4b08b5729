package client

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type profileResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}

// Register creates an account and returns the new user with its tokens.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	var out domain.AuthResult
	err := c.post(ctx, "register", "/api/auth/register/", reg, &out)
	return out, err
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	var out domain.AuthResult
	err := c.post(ctx, "login", "/api/auth/login/", creds, &out)
	return out, err
}

// Refresh exchanges a refresh token for a new access token. The API may
// rotate the refresh token as well.
func (c *Client) Refresh(ctx context.Context, refresh string) (domain.Tokens, error) {
	var out domain.Tokens
	err := c.post(ctx, "refresh token", "/api/auth/refresh/", refreshRequest{Refresh: refresh}, &out)
	return out, err
}

// Logout blacklists the refresh token.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	return c.post(ctx, "logout", "/api/auth/logout/", refreshRequest{Refresh: refresh}, nil)
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := c.get(ctx, "get profile", "/api/users/profile/", nil, &u)
	return u, err
}

// UpdateProfile saves the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (domain.User, error) {
	var out profileResponse
	if err := c.put(ctx, "update profile", "/api/users/profile/", upd, &out); err != nil {
		return domain.User{}, err
	}
	return out.User, nil
}
