package api

import (
	"context"
	"fmt"
	"net/http"

	cherrors "github.com/alexjbarnes/teamchat/internal/errors"
)

// Register creates a new account and returns its profile.
func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	req := map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}

	var user User
	if err := c.post(ctx, "/auth/register", req, &user); err != nil {
		return nil, fmt.Errorf("registering: %w", err)
	}

	return &user, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	req := map[string]string{
		"email":    email,
		"password": password,
	}

	var resp TokenResponse

	err := c.post(ctx, "/auth/login", req, &resp)
	if err != nil {
		if HasStatus(err, http.StatusUnauthorized) {
			return "", cherrors.ErrInvalidCredentials
		}

		return "", fmt.Errorf("logging in: %w", err)
	}

	return resp.AccessToken, nil
}

// Me returns the authenticated user's profile, including the workspace id.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User

	err := c.get(ctx, "/auth/me", &user)
	if err != nil {
		if HasStatus(err, http.StatusUnauthorized) {
			return nil, cherrors.ErrInvalidToken
		}

		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	return &user, nil
}
