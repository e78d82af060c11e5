package webhook

import (
	"encoding/json"
	"strconv"
)

// EventKind tags the recognized callback shapes Daraja posts.
type EventKind string

const (
	EventSTK             EventKind = "stk"
	EventResult          EventKind = "result"
	EventC2BConfirmation EventKind = "c2b_confirmation"
	EventUnrecognized    EventKind = "unrecognized"
)

// Event is a tagged union over callback payloads. Exactly one of STK,
// Result, C2B is non-nil for a recognized kind; Raw always holds the
// original body so unrecognized payloads can be stored for later triage.
type Event struct {
	Kind   EventKind
	STK    *STKCallback
	Result *ResultCallback
	C2B    *C2BConfirmation
	Raw    json.RawMessage
}

// CorrelationID returns the identifier that joins this event back to the
// request the caller persisted: CheckoutRequestID, ConversationID or
// TransID depending on kind.
func (e Event) CorrelationID() string {
	switch e.Kind {
	case EventSTK:
		return e.STK.CheckoutRequestID
	case EventResult:
		if e.Result.ConversationID != "" {
			return e.Result.ConversationID
		}
		return e.Result.OriginatorConversationID
	case EventC2BConfirmation:
		return e.C2B.TransID
	}
	return ""
}

// MetadataItem is one entry of the STK callback's flexible
// CallbackMetadata.Item list. Value types vary by Name (string receipt,
// numeric amount), hence any.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// STKCallback is the payment outcome for an STK Push. ResultCode 0 means
// the customer paid; anything else is a failure or cancellation.
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataValue returns the named metadata item's value, or nil when the
// item is absent. Failed pushes carry no metadata at all.
func (c *STKCallback) MetadataValue(name string) any {
	for _, item := range c.CallbackMetadata.Item {
		if item.Name == name {
			return item.Value
		}
	}
	return nil
}

// ReceiptNumber extracts MpesaReceiptNumber, nil when absent.
func (c *STKCallback) ReceiptNumber() *string {
	if v, ok := c.MetadataValue("MpesaReceiptNumber").(string); ok {
		return &v
	}
	return nil
}

// Amount extracts the paid amount, nil when absent.
func (c *STKCallback) Amount() *float64 {
	if v, ok := c.MetadataValue("Amount").(float64); ok {
		return &v
	}
	return nil
}

// PhoneNumber extracts the payer MSISDN, nil when absent. Daraja sends it
// as a JSON number.
func (c *STKCallback) PhoneNumber() *string {
	switch v := c.MetadataValue("PhoneNumber").(type) {
	case string:
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	}
	return nil
}

// ResultParameter is one entry of the generic Result callback's parameter
// list.
type ResultParameter struct {
	Key   string `json:"Key"`
	Value any    `json:"Value"`
}

// ResultCallback is the generic outcome shape for B2C, B2B, Reversal and
// Transaction Status commands.
type ResultCallback struct {
	ResultType               int    `json:"ResultType"`
	ResultCode               int    `json:"ResultCode"`
	ResultDesc               string `json:"ResultDesc"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	TransactionID            string `json:"TransactionID"`
	ResultParameters         struct {
		ResultParameter []ResultParameter `json:"ResultParameter"`
	} `json:"ResultParameters"`
}

// ParameterValue returns the named result parameter's value, nil when
// absent.
func (r *ResultCallback) ParameterValue(key string) any {
	for _, p := range r.ResultParameters.ResultParameter {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// C2BConfirmation is the payload Daraja posts to the registered
// confirmation URL when a customer pays a shortcode directly.
type C2BConfirmation struct {
	TransactionType   string `json:"TransactionType"`
	TransID           string `json:"TransID"`
	TransTime         string `json:"TransTime"`
	TransAmount       string `json:"TransAmount"`
	BusinessShortCode string `json:"BusinessShortCode"`
	BillRefNumber     string `json:"BillRefNumber"`
	InvoiceNumber     string `json:"InvoiceNumber"`
	OrgAccountBalance string `json:"OrgAccountBalance"`
	ThirdPartyTransID string `json:"ThirdPartyTransID"`
	MSISDN            string `json:"MSISDN"`
	FirstName         string `json:"FirstName"`
	MiddleName        string `json:"MiddleName"`
	LastName          string `json:"LastName"`
}

// Parse narrows an untyped callback body into an Event by shape-probing
// the required nested fields. It never fails: a body that matches no known
// shape comes back as EventUnrecognized, which is a routine occurrence,
// not an error.
func Parse(body []byte) Event {
	event := Event{Kind: EventUnrecognized, Raw: append(json.RawMessage(nil), body...)}

	var probe struct {
		Body *struct {
			StkCallback *STKCallback `json:"stkCallback"`
		} `json:"Body"`
		Result  *ResultCallback `json:"Result"`
		TransID string          `json:"TransID"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return event
	}

	switch {
	case probe.Body != nil && probe.Body.StkCallback != nil && probe.Body.StkCallback.CheckoutRequestID != "":
		event.Kind = EventSTK
		event.STK = probe.Body.StkCallback
	case probe.Result != nil && (probe.Result.ConversationID != "" || probe.Result.OriginatorConversationID != ""):
		event.Kind = EventResult
		event.Result = probe.Result
	case probe.TransID != "":
		var c2b C2BConfirmation
		if err := json.Unmarshal(body, &c2b); err == nil {
			event.Kind = EventC2BConfirmation
			event.C2B = &c2b
		}
	}
	return event
}
