package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vovakirdan/livetrigger/internal/gateway"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidUsername is returned when the username is blank.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrNotLoggedIn is returned by Whoami without a usable token.
	ErrNotLoggedIn = errors.New("not logged in")
)

// LoginPath is the backend endpoint exchanging credentials for a token.
const LoginPath = "/api/auth/login"

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Identity describes the operator behind the stored token.
type Identity struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service provides the operator-facing authentication flow.
type Service struct {
	tokens *TokenStore
	api    *gateway.Client
}

// NewService creates a new authentication service.
func NewService(tokens *TokenStore, api *gateway.Client) *Service {
	return &Service{tokens: tokens, api: api}
}

// Login exchanges credentials for a token and stores it.
func (s *Service) Login(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Identity{}, ErrInvalidUsername
	}

	var resp LoginResponse
	err := s.api.Do(ctx, http.MethodPost, LoginPath, LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return Identity{}, fmt.Errorf("login: empty token in response")
	}

	if err := s.tokens.SetToken(ctx, resp.Token); err != nil {
		return Identity{}, err
	}
	return identityOf(resp.Token)
}

// Logout forgets the stored token.
func (s *Service) Logout(ctx context.Context) error {
	return s.tokens.RemoveToken(ctx)
}

// Whoami describes the stored token when it is still valid at now.
func (s *Service) Whoami(now time.Time) (Identity, error) {
	if !s.tokens.IsAuthenticated(now) {
		return Identity{}, ErrNotLoggedIn
	}
	return identityOf(s.tokens.Token())
}

func identityOf(token string) (Identity, error) {
	claims, err := InspectToken(token)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{Username: claims.Username}
	if id.Username == "" {
		id.Username = claims.Subject
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
