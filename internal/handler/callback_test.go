package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okudo-collective/daraja-gateway/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stkCallbackBody = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 1.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"}
				]
			}
		}
	}
}`

type mockSink struct {
	handleFn func(ctx context.Context, event webhook.Event) error
	events   []webhook.Event
}

func (m *mockSink) HandleEvent(ctx context.Context, event webhook.Event) error {
	m.events = append(m.events, event)
	if m.handleFn != nil {
		return m.handleFn(ctx, event)
	}
	return nil
}

func assertAck(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 0, body.ResultCode)
	assert.Equal(t, "Accepted", body.ResultDesc)
}

func TestHandleCallback_ParsesAndAcks(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, true, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assertAck(t, rr)
	require.Len(t, sink.events, 1)
	assert.Equal(t, webhook.EventSTK, sink.events[0].Kind)
	assert.Equal(t, "ws_CO_191220191020363925", sink.events[0].CorrelationID())
}

func TestHandleCallback_AcksEvenWhenSinkFails(t *testing.T) {
	sink := &mockSink{
		handleFn: func(ctx context.Context, event webhook.Event) error {
			return errors.New("database down")
		},
	}
	h := NewCallbackHandler(sink, nil, true, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	// Daraja must still get its 200; a non-ack only triggers redelivery of
	// a payload we already hold.
	assertAck(t, rr)
}

func TestHandleCallback_AcksUnrecognizedPayload(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, true, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/result", strings.NewReader(`{"surprise":true}`))
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assertAck(t, rr)
	assert.Empty(t, sink.events)
}

func TestHandleCallback_RejectsUnlistedIP(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, false, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	req.RemoteAddr = "203.0.113.10:4711"
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, sink.events)
}

func TestHandleCallback_AcceptsAllowlistedIP(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, false, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	req.RemoteAddr = "196.201.214.200:44321"
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assertAck(t, rr)
	require.Len(t, sink.events, 1)
}

func TestHandleCallback_IgnoresForwardedForOnDirectConnections(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, false, false)

	// A direct caller cannot talk its way onto the allowlist with a
	// forged header.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	req.RemoteAddr = "203.0.113.10:4711"
	req.Header.Set("X-Forwarded-For", "196.201.212.5")
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, sink.events)
}

func TestHandleCallback_TrustedProxyUsesAppendedHop(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, false, true)

	// The proxy appends the peer it accepted from as the last hop.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	req.RemoteAddr = "10.0.0.5:9000"
	req.Header.Set("X-Forwarded-For", "196.201.213.44")
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assertAck(t, rr)
	require.Len(t, sink.events, 1)
}

func TestHandleCallback_TrustedProxySpoofedFirstHopRejected(t *testing.T) {
	sink := &mockSink{}
	h := NewCallbackHandler(sink, nil, false, true)

	// Client-supplied hops precede the proxy's; only the appended last
	// hop decides.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stk", strings.NewReader(stkCallbackBody))
	req.RemoteAddr = "10.0.0.5:9000"
	req.Header.Set("X-Forwarded-For", "196.201.212.5, 203.0.113.10")
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, sink.events)
}

func TestHandleValidation_AlwaysAccepts(t *testing.T) {
	h := NewCallbackHandler(&mockSink{}, nil, true, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/c2b/validation", strings.NewReader(`{"TransID":"RKTQDM7W6S"}`))
	rr := httptest.NewRecorder()

	h.HandleValidation(rr, req)

	assertAck(t, rr)
}
