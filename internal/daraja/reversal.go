package daraja

import "context"

// ReversalRequest asks Daraja to reverse a completed transaction.
// Privileged.
type ReversalRequest struct {
	Initiator              string
	SecurityCredential     string
	TransactionID          string
	Amount                 float64
	ReceiverParty          string
	ReceiverIdentifierType int
	Remarks                string
	Occasion               string
	QueueTimeOutURL        string
	ResultURL              string
}

type ReversalResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

type reversalPayload struct {
	Initiator              string `json:"Initiator"`
	SecurityCredential     string `json:"SecurityCredential"`
	CommandID              string `json:"CommandID"`
	TransactionID          string `json:"TransactionID"`
	Amount                 int    `json:"Amount"`
	ReceiverParty          string `json:"ReceiverParty"`
	RecieverIdentifierType int    `json:"RecieverIdentifierType"`
	Remarks                string `json:"Remarks"`
	Occasion               string `json:"Occasion"`
	QueueTimeOutURL        string `json:"QueueTimeOutURL"`
	ResultURL              string `json:"ResultURL"`
}

func (c *Client) Reverse(ctx context.Context, req ReversalRequest) (*ReversalResponse, error) {
	if req.Initiator == "" {
		return nil, NewValidationError("initiator is required")
	}
	if req.SecurityCredential == "" {
		return nil, NewValidationError("security credential is required")
	}
	if req.TransactionID == "" {
		return nil, NewValidationError("transaction ID is required")
	}
	if req.ReceiverParty == "" {
		return nil, NewValidationError("receiver party is required")
	}
	if req.QueueTimeOutURL == "" || req.ResultURL == "" {
		return nil, NewValidationError("queue timeout URL and result URL are required")
	}

	amount := roundAmount(req.Amount)
	if amount < 1 {
		return nil, NewValidationError("amount %v rounds to %d; minimum is 1 KES", req.Amount, amount)
	}

	receiverType := req.ReceiverIdentifierType
	if receiverType == 0 {
		receiverType = IdentifierShortcode
	}

	payload := reversalPayload{
		Initiator:              req.Initiator,
		SecurityCredential:     req.SecurityCredential,
		CommandID:              "TransactionReversal",
		TransactionID:          req.TransactionID,
		Amount:                 amount,
		ReceiverParty:          req.ReceiverParty,
		RecieverIdentifierType: receiverType,
		Remarks:                req.Remarks,
		Occasion:               req.Occasion,
		QueueTimeOutURL:        req.QueueTimeOutURL,
		ResultURL:              req.ResultURL,
	}

	var out ReversalResponse
	if err := c.post(ctx, pathReversal, payload, &out, 0, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
