package daraja

import "context"

// C2BSimulateRequest simulates a customer payment into a shortcode.
// Sandbox-only: the production gateway has no simulate endpoint, so the
// client refuses before any network work.
type C2BSimulateRequest struct {
	ShortCode     string
	CommandID     string
	Amount        float64
	PhoneNumber   string
	BillRefNumber string
}

type C2BSimulateResponse struct {
	OriginatorCoversationID string `json:"OriginatorCoversationID"`
	ConversationID          string `json:"ConversationID"`
	ResponseCode            string `json:"ResponseCode"`
	ResponseDescription     string `json:"ResponseDescription"`
}

type c2bSimulatePayload struct {
	ShortCode string `json:"ShortCode"`
	CommandID string `json:"CommandID"`
	Amount    int    `json:"Amount"`
	Msisdn    string `json:"Msisdn"`
	// Nil for Buy-Goods payments; a Till has no account reference and the
	// simulator rejects an empty string where it expects null.
	BillRefNumber *string `json:"BillRefNumber"`
}

func (c *Client) C2BSimulate(ctx context.Context, req C2BSimulateRequest) (*C2BSimulateResponse, error) {
	if c.env != Sandbox {
		return nil, NewValidationError("C2B simulate is only available in the sandbox environment")
	}
	if req.ShortCode == "" {
		return nil, NewValidationError("shortcode is required")
	}

	amount := roundAmount(req.Amount)
	if amount < 1 {
		return nil, NewValidationError("amount %v rounds to %d; minimum is 1 KES", req.Amount, amount)
	}

	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	commandID := req.CommandID
	if commandID == "" {
		commandID = CommandPayBill
	}

	var billRef *string
	if commandID == CommandPayBill {
		ref := req.BillRefNumber
		if ref == "" {
			return nil, NewValidationError("bill reference is required for Paybill payments")
		}
		billRef = &ref
	}

	payload := c2bSimulatePayload{
		ShortCode:     req.ShortCode,
		CommandID:     commandID,
		Amount:        amount,
		Msisdn:        phone,
		BillRefNumber: billRef,
	}

	var out C2BSimulateResponse
	if err := c.post(ctx, pathC2BSimulate, payload, &out, 0, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// C2BRegisterRequest registers the confirmation and validation URLs
// Daraja posts C2B payments to. One-shot configuration; calling it again
// with the same URLs is harmless.
type C2BRegisterRequest struct {
	ShortCode       string
	ResponseType    string
	ConfirmationURL string
	ValidationURL   string
}

type C2BRegisterResponse struct {
	OriginatorCoversationID string `json:"OriginatorCoversationID"`
	ConversationID          string `json:"ConversationID"`
	ResponseDescription     string `json:"ResponseDescription"`
}

type c2bRegisterPayload struct {
	ShortCode       string `json:"ShortCode"`
	ResponseType    string `json:"ResponseType"`
	ConfirmationURL string `json:"ConfirmationURL"`
	ValidationURL   string `json:"ValidationURL"`
}

func (c *Client) C2BRegisterURL(ctx context.Context, req C2BRegisterRequest) (*C2BRegisterResponse, error) {
	if req.ShortCode == "" {
		return nil, NewValidationError("shortcode is required")
	}
	if req.ConfirmationURL == "" || req.ValidationURL == "" {
		return nil, NewValidationError("confirmation and validation URLs are required")
	}

	responseType := req.ResponseType
	if responseType == "" {
		responseType = "Completed"
	}

	payload := c2bRegisterPayload{
		ShortCode:       req.ShortCode,
		ResponseType:    responseType,
		ConfirmationURL: req.ConfirmationURL,
		ValidationURL:   req.ValidationURL,
	}

	var out C2BRegisterResponse
	if err := c.post(ctx, pathC2BRegister, payload, &out, 0, 0); err != nil {
		return nil, err
	}

	c.logger.Info("c2b urls registered", "shortcode", req.ShortCode)
	return &out, nil
}
