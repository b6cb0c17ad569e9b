package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodviz/internal/domain"
	"foodviz/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login authenticates the operator and persists the returned token and user.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return session.Session{}, &domain.FieldError{Field: "username", Message: "username is required"}
	}
	if password == "" {
		return session.Session{}, &domain.FieldError{Field: "password", Message: "password is required"}
	}
	req, err := jsonRequest(http.MethodPost, "/login", loginRequest{Username: username, Password: password}, false)
	if err != nil {
		return session.Session{}, err
	}
	var resp loginResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return session.Session{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return session.Session{}, errors.New("api: login response did not include a token")
	}
	s := session.Session{Token: resp.Token, User: resp.User, CreatedAt: time.Now().UTC()}
	if err := c.session.Save(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("api: persist session: %w", err)
	}
	c.logger.Info().Str("username", resp.User.Username).Msg("api: logged in")
	return s, nil
}

// Logout forgets the stored session. The backend keeps no server-side session to revoke.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Clear(ctx)
}

// Me returns the profile of the authenticated operator.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", auth: true})
	if err != nil {
		return domain.User{}, err
	}
	var wrapped struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("api: decode response: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the operator's username and email.
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	if strings.TrimSpace(update.Username) == "" {
		return domain.User{}, &domain.FieldError{Field: "username", Message: "username is required"}
	}
	req, err := jsonRequest(http.MethodPut, "/auth/profile", update, true)
	if err != nil {
		return domain.User{}, err
	}
	var resp struct {
		User domain.User `json:"user"`
	}
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return domain.User{}, err
	}
	user := resp.User
	if user.Username == "" {
		user.Username = update.Username
		user.Email = update.Email
	}
	if s, err := c.session.Load(ctx); err == nil && s.Valid() {
		s.User = user
		if err := c.session.Save(ctx, s); err != nil {
			c.logger.Warn().Err(err).Msg("api: persist updated profile")
		}
	}
	return user, nil
}
