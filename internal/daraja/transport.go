package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Transport executes JSON requests against the gateway with per-call
// timeout and bounded retry. It owns no credentials; callers supply
// Authorization headers.
type Transport struct {
	httpClient *http.Client
}

func NewTransport(httpClient *http.Client) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Transport{httpClient: httpClient}
}

// Request describes one gateway call. Retries counts additional attempts
// after the first; zero means a single attempt.
type Request struct {
	Method     string
	URL        string
	Headers    map[string]string
	Body       any
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Response carries the decoded-on-demand body. Body is always the raw
// bytes; Decode narrows it into a typed struct.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewInvalidResponseError(err, string(r.Body))
	}
	return nil
}

// Do runs the request, retrying transient failures (network errors,
// timeouts, 429 and 5xx responses) with exponential backoff and jitter.
// Other 4xx responses are final and returned immediately.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	attempts := req.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := t.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(req.RetryDelay, attempt)):
			}
		}
	}

	if req.Retries > 0 {
		return nil, &Error{
			Code:       ErrCodeRequestFailed,
			Message:    "maximum retries exceeded; outcome unknown",
			StatusCode: statusOf(lastErr),
			Err:        lastErr,
		}
	}
	return nil, lastErr
}

func (t *Transport) doOnce(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Code: ErrCodeRequestFailed, Message: "could not marshal request body", Err: err}
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, &Error{Code: ErrCodeRequestFailed, Message: "could not build request", Err: err}
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewTimeoutError(err)
		}
		return nil, NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewAPIError(resp.StatusCode, gatewayErrorMessage(resp.StatusCode, body), string(body))
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// gatewayErrorMessage pulls Daraja's error text out of a failure body. The
// gateway is inconsistent: OAuth and some v1 endpoints use errorMessage,
// command endpoints use ResponseDescription.
func gatewayErrorMessage(status int, body []byte) string {
	var shape struct {
		ErrorMessage        string `json:"errorMessage"`
		ResponseDescription string `json:"ResponseDescription"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		if shape.ErrorMessage != "" {
			return shape.ErrorMessage
		}
		if shape.ResponseDescription != "" {
			return shape.ResponseDescription
		}
	}
	return fmt.Sprintf("gateway returned status %d", status)
}

func isRetryable(err error) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.IsRetryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func statusOf(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.StatusCode
	}
	return 0
}

// Backoff calculation with exponential delay and jitter
func backoff(baseDelay time.Duration, attempt int) time.Duration {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	base := baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
