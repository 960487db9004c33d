package foxess

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/anicoll/foxess-integration/pkg/hasher"
	"go.uber.org/zap"
)

const loginPath = "/c/v0/user/login"

// Session caches the bearer token for one device's cloud account until the vendor reports it expired.
type Session struct {
	t           *transport
	username    string
	md5Password string
	logger      *zap.Logger

	mu    sync.Mutex
	token string
}

func NewSession(t *transport, username, password string) *Session {
	return &Session{
		t:           t,
		username:    username,
		md5Password: hasher.HashPassword(password),
		logger:      zap.L(),
	}
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResult struct {
	Token string `json:"token"`
}

// EnsureToken returns the cached token, logging in first when there is none.
func (s *Session) EnsureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	var res loginResult
	err := s.t.call(ctx, http.MethodPost, loginPath, nil, loginRequest{User: s.username, Password: s.md5Password}, &res)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			s.logger.Error("foxess rejected credentials", zap.String("user", s.username))
			return "", err
		}
		return "", fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return "", fmt.Errorf("%w: login returned no token", ErrMalformedResponse)
	}
	s.logger.Debug("foxess login succeeded", zap.String("user", s.username))
	s.token = res.Token
	return s.token, nil
}

// Invalidate drops token if it is still the cached one.
func (s *Session) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.token = ""
	}
}

// Do performs an authenticated call, re-authenticating once if the token has expired.
func (s *Session) Do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	// up to 2 attempts since the cached token may have expired
	for i := 0; i < 2; i++ {
		token, err := s.EnsureToken(ctx)
		if err != nil {
			return err
		}
		err = s.t.call(ctx, method, path, query, body, dest, withHeader("token", token))
		if errors.Is(err, ErrTokenExpired) {
			s.logger.Debug("foxess token expired", zap.String("path", path))
			s.Invalidate(token)
			continue
		}
		return err
	}
	return fmt.Errorf("%s: %w", path, ErrTokenExpired)
}
