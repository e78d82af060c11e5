package daraja

import (
	"context"
	"time"
)

const (
	maxAccountReferenceLen = 12
	maxTransactionDescLen  = 13
)

// Daraja command identifiers for customer-initiated flows.
const (
	CommandPayBill  = "CustomerPayBillOnline"
	CommandBuyGoods = "CustomerBuyGoodsOnline"
)

// STKPushRequest initiates an M-Pesa Express prompt on the customer's
// phone. TransactionType defaults to CustomerPayBillOnline; PartyB
// defaults to the shortcode and is overridden for Buy-Goods/Till flows.
type STKPushRequest struct {
	BusinessShortCode string
	Passkey           string
	Amount            float64
	PhoneNumber       string
	CallbackURL       string
	AccountReference  string
	TransactionDesc   string
	TransactionType   string
	PartyB            string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPush sends an M-Pesa Express payment prompt. The synchronous response
// confirms acceptance only; the outcome arrives later on the callback URL.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if req.BusinessShortCode == "" {
		return nil, NewValidationError("business shortcode is required")
	}
	if req.Passkey == "" {
		return nil, NewValidationError("passkey is required")
	}
	if req.CallbackURL == "" {
		return nil, NewValidationError("callback URL is required")
	}

	amount := roundAmount(req.Amount)
	if amount < 1 {
		return nil, NewValidationError("amount %v rounds to %d; minimum is 1 KES", req.Amount, amount)
	}

	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	transactionType := req.TransactionType
	if transactionType == "" {
		transactionType = CommandPayBill
	}
	partyB := req.PartyB
	if partyB == "" {
		partyB = req.BusinessShortCode
	}

	timestamp, password := stkTimestamp(time.Now(), req.BusinessShortCode, req.Passkey)

	payload := stkPushPayload{
		BusinessShortCode: req.BusinessShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            partyB,
		PhoneNumber:       phone,
		CallBackURL:       req.CallbackURL,
		AccountReference:  truncate(req.AccountReference, maxAccountReferenceLen),
		TransactionDesc:   truncate(req.TransactionDesc, maxTransactionDescLen),
	}

	var out STKPushResponse
	if err := c.post(ctx, pathSTKPush, payload, &out, c.stkRetries, c.stkRetryDelay); err != nil {
		return nil, err
	}

	c.logger.Info("stk push accepted",
		"checkout_request_id", out.CheckoutRequestID,
		"merchant_request_id", out.MerchantRequestID,
	)
	return &out, nil
}

// STKQueryRequest checks the status of a previously-initiated STK Push.
type STKQueryRequest struct {
	BusinessShortCode string
	Passkey           string
	CheckoutRequestID string
}

type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// STKQuery is informational: it never changes the state of the push it asks
// about.
func (c *Client) STKQuery(ctx context.Context, req STKQueryRequest) (*STKQueryResponse, error) {
	if req.BusinessShortCode == "" {
		return nil, NewValidationError("business shortcode is required")
	}
	if req.Passkey == "" {
		return nil, NewValidationError("passkey is required")
	}
	if req.CheckoutRequestID == "" {
		return nil, NewValidationError("checkout request ID is required")
	}

	timestamp, password := stkTimestamp(time.Now(), req.BusinessShortCode, req.Passkey)

	payload := stkQueryPayload{
		BusinessShortCode: req.BusinessShortCode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: req.CheckoutRequestID,
	}

	var out STKQueryResponse
	if err := c.post(ctx, pathSTKQuery, payload, &out, 0, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
