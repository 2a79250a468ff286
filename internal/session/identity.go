package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/abgdnv/catalogsync/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	signInPath = "accounts:signInWithPassword"
	signUpPath = "accounts:signUp"
)

// IdentityGate signs users in against an identity-toolkit style REST API and keeps one session in memory.
type IdentityGate struct {
	base    *url.URL
	apiKey  string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current *Session
}

func NewIdentityGate(cfg config.AuthConfig, httpClient *http.Client, logger *slog.Logger) (*IdentityGate, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth base url %q: %w", cfg.BaseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &IdentityGate{
		base:    base,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    httpClient,
		logger:  logger.With("component", "session"),
		now:     time.Now,
	}, nil
}

// CurrentSession returns the session until its id token expires.
func (g *IdentityGate) CurrentSession(ctx context.Context) (*Session, bool) {
	g.mu.RLock()
	s := g.current
	g.mu.RUnlock()
	if s == nil {
		return nil, false
	}
	if !s.ExpiresAt.IsZero() && !g.now().Before(s.ExpiresAt) {
		g.logger.InfoContext(ctx, "session expired", "user_id", s.UserID)
		g.mu.Lock()
		if g.current == s {
			g.current = nil
		}
		g.mu.Unlock()
		return nil, false
	}
	copied := *s
	return &copied, true
}

func (g *IdentityGate) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return g.authenticate(ctx, signInPath, email, password)
}

func (g *IdentityGate) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return g.authenticate(ctx, signUpPath, email, password)
}

func (g *IdentityGate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	s := g.current
	g.current = nil
	g.mu.Unlock()
	if s != nil {
		g.logger.InfoContext(ctx, "signed out", "user_id", s.UserID)
	}
	return nil
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *IdentityGate) authenticate(ctx context.Context, path, email, password string) (*Session, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	body, err := json.Marshal(credentialsRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, &catalogerrors.AuthError{Kind: catalogerrors.AuthUnknown, Err: err}
	}

	u := g.base.JoinPath(path)
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &catalogerrors.AuthError{Kind: catalogerrors.AuthUnknown, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		g.logger.ErrorContext(ctx, "identity request failed", "op", path, "error", err)
		return nil, &catalogerrors.AuthError{Kind: catalogerrors.AuthUnknown, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &catalogerrors.AuthError{Kind: catalogerrors.AuthUnknown, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		authErr := parseAuthError(resp.StatusCode, raw)
		g.logger.WarnContext(ctx, "authentication rejected", "op", path, "kind", authErr.Kind, "status", resp.StatusCode)
		return nil, authErr
	}

	var tokens tokenResponse
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, &catalogerrors.AuthError{Kind: catalogerrors.AuthUnknown, Err: fmt.Errorf("decode token response: %w", err)}
	}
	s := &Session{
		UserID:       tokens.LocalID,
		Email:        tokens.Email,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    g.expiry(tokens),
	}
	g.mu.Lock()
	g.current = s
	g.mu.Unlock()
	g.logger.InfoContext(ctx, "signed in", "user_id", s.UserID)

	copied := *s
	return &copied, nil
}

// expiry prefers the id token's exp claim and falls back to expiresIn.
func (g *IdentityGate) expiry(tokens tokenResponse) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.IDToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if secs, err := strconv.Atoi(tokens.ExpiresIn); err == nil && secs > 0 {
		return g.now().Add(time.Duration(secs) * time.Second)
	}
	return time.Time{}
}

func parseAuthError(status int, raw []byte) *catalogerrors.AuthError {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Message == "" {
		return &catalogerrors.AuthError{Kind: catalogerrors.AuthUnknown, Err: fmt.Errorf("unexpected status %d", status)}
	}
	// messages look like "WEAK_PASSWORD : Password should be at least 6 characters"
	code, _, _ := strings.Cut(body.Error.Message, " ")
	return &catalogerrors.AuthError{Kind: kindOf(code), Err: errors.New(body.Error.Message)}
}

func kindOf(code string) catalogerrors.AuthErrorKind {
	switch code {
	case "EMAIL_NOT_FOUND":
		return catalogerrors.NotRegistered
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return catalogerrors.WrongPassword
	case "EMAIL_EXISTS":
		return catalogerrors.AlreadyInUse
	case "INVALID_EMAIL":
		return catalogerrors.InvalidEmail
	default:
		return catalogerrors.AuthUnknown
	}
}
