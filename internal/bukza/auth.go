package bukza

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teoh/bintangbuddy/internal/config"
)

// FetchToken obtains an anonymous client bearer token. The auth endpoint
// answers with the raw token as the response body.
func FetchToken(ctx context.Context, hc *http.Client, cfg config.ClientConfig) (string, error) {
	if hc == nil {
		hc = NewHTTPClient()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.AuthURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create token request: %v", ErrAuthUnavailable, err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to make token request: %v", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read token response: %v", ErrAuthUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request failed (status %d): %s", ErrAuthUnavailable, resp.StatusCode, truncate(body))
	}

	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuthUnavailable)
	}
	return token, nil
}

// TokenManager hands out the bearer token for requests. A token from the
// configuration is used as is; otherwise one is fetched from the auth endpoint
// on first use and fetched again after the service rejects it.
type TokenManager struct {
	mu     sync.Mutex
	hc     *http.Client
	cfg    config.ClientConfig
	token  string
	static bool
	issued int
	logger *zap.Logger
}

// NewTokenManager creates a token manager for cfg
func NewTokenManager(hc *http.Client, cfg config.ClientConfig, logger *zap.Logger) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		hc:     hc,
		cfg:    cfg,
		token:  cfg.Token,
		static: cfg.HasToken(),
		logger: logger,
	}
}

// Token returns the current token, fetching one when none is held
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" {
		return m.token, nil
	}

	token, err := FetchToken(ctx, m.hc, m.cfg)
	if err != nil {
		return "", err
	}
	m.token = token
	m.issued++
	m.logger.Debug("bukza.token.fetched", zap.Int("issued", m.issued))
	return token, nil
}

// Invalidate drops stale if it is still the current token, so the next call
// to Token fetches a fresh one. It reports whether a new token can be
// obtained; a configured token is never replaced.
func (m *TokenManager) Invalidate(stale string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.static {
		return false
	}
	if m.token == stale {
		m.token = ""
	}
	return true
}

// Refreshable reports whether tokens come from the auth endpoint
func (m *TokenManager) Refreshable() bool {
	return !m.static
}
