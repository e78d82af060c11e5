package daraja

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"
)

// tokenExpiryBuffer keeps us from handing out a token about to die mid-call.
const tokenExpiryBuffer = 60 * time.Second

const defaultTokenLifetime = 3600 * time.Second

// TokenManager caches one OAuth bearer token per credential pair. Safe for
// concurrent use; two callers racing past an expired token may both fetch,
// which is tolerated (the fetch is idempotent and cheap) rather than
// serialized behind a single-flight guard.
type TokenManager struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	transport      *Transport

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time
}

func NewTokenManager(consumerKey, consumerSecret string, env Environment, transport *Transport) *TokenManager {
	return &TokenManager{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		baseURL:        env.BaseURL(),
		transport:      transport,
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// Token returns a bearer token, fetching a fresh one only when the cached
// token is within 60s of expiry. A response without an access_token fails
// with AUTH_FAILED and is not retried here; whether to retry is the
// caller's decision.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	valid := m.token != "" && m.now().Add(tokenExpiryBuffer).Before(m.expiry)
	token := m.token
	m.mu.Unlock()

	if valid {
		return token, nil
	}

	basic := base64.StdEncoding.EncodeToString([]byte(m.consumerKey + ":" + m.consumerSecret))

	resp, err := m.transport.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    m.baseURL + pathOAuth,
		Headers: map[string]string{
			"Authorization": "Basic " + basic,
		},
	})
	if err != nil {
		return "", err
	}

	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", NewAuthFailedError(string(resp.Body))
	}

	lifetime := defaultTokenLifetime
	if d, err := time.ParseDuration(tr.ExpiresIn + "s"); err == nil && d > 0 {
		lifetime = d
	}

	m.mu.Lock()
	m.token = tr.AccessToken
	m.expiry = m.now().Add(lifetime)
	m.mu.Unlock()

	return tr.AccessToken, nil
}

// ClearCache drops the cached token so the next Token call refetches.
// Callers use this after observing a 401 on a downstream request.
func (m *TokenManager) ClearCache() {
	m.mu.Lock()
	m.token = ""
	m.expiry = time.Time{}
	m.mu.Unlock()
}
