package daraja

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"
)

// Client is the entry point to the Daraja gateway. One Client serves one
// credential pair; processes serving multiple businesses construct one
// Client each so token caches never leak across tenants.
type Client struct {
	env       Environment
	baseURL   string
	transport *Transport
	tokens    *TokenManager
	logger    *slog.Logger

	stkRetries    int
	stkRetryDelay time.Duration
}

type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Environment    Environment
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, NewValidationError("consumer key and consumer secret are required")
	}
	if cfg.Environment != Sandbox && cfg.Environment != Production {
		return nil, NewValidationError("environment must be %q or %q, got %q", Sandbox, Production, cfg.Environment)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := NewTransport(cfg.HTTPClient)

	c := &Client{
		env:       cfg.Environment,
		baseURL:   cfg.Environment.BaseURL(),
		transport: transport,
		tokens:    NewTokenManager(cfg.ConsumerKey, cfg.ConsumerSecret, cfg.Environment, transport),
		logger:    logger,
	}

	// The sandbox gateway drops STK Push calls often enough that a single
	// attempt is unusable; production gets one retry.
	if cfg.Environment == Sandbox {
		c.stkRetries = 3
		c.stkRetryDelay = 2 * time.Second
	} else {
		c.stkRetries = 1
		c.stkRetryDelay = time.Second
	}

	return c, nil
}

// Environment returns the environment the client was built for.
func (c *Client) Environment() Environment {
	return c.env
}

// ClearTokenCache forces a token refetch on the next call. Use after a 401.
func (c *Client) ClearTokenCache() {
	c.tokens.ClearCache()
}

// post runs an authenticated POST and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, payload any, out any, retries int, retryDelay time.Duration) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	resp, err := c.transport.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
		},
		Body:       payload,
		Retries:    retries,
		RetryDelay: retryDelay,
	})
	if err != nil {
		return err
	}

	return resp.Decode(out)
}

// stkPassword derives the STK password for a single timestamp. The caller
// threads the same timestamp into the request's Timestamp field; computing
// it twice risks straddling a second boundary and desyncing the pair.
func stkPassword(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// nairobiTime is what Daraja validates STK timestamps against (UTC+3, no DST).
var nairobiTime = time.FixedZone("EAT", 3*60*60)

// stkTimestamp returns the current time formatted as Daraja expects,
// together with the derived password, so both request fields come from one
// clock read.
func stkTimestamp(now time.Time, shortcode, passkey string) (timestamp, password string) {
	timestamp = now.In(nairobiTime).Format("20060102150405")
	password = stkPassword(shortcode, passkey, timestamp)
	return timestamp, password
}
