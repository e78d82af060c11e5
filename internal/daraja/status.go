package daraja

import "context"

// TransactionStatusRequest queries the state of a transaction by its
// M-Pesa receipt number. Privileged.
type TransactionStatusRequest struct {
	Initiator          string
	SecurityCredential string
	TransactionID      string
	PartyA             string
	IdentifierType     int
	Remarks            string
	Occasion           string
	QueueTimeOutURL    string
	ResultURL          string
}

type TransactionStatusResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

type transactionStatusPayload struct {
	Initiator          string `json:"Initiator"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	TransactionID      string `json:"TransactionID"`
	PartyA             string `json:"PartyA"`
	IdentifierType     int    `json:"IdentifierType"`
	Remarks            string `json:"Remarks"`
	Occasion           string `json:"Occasion"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	ResultURL          string `json:"ResultURL"`
}

func (c *Client) TransactionStatus(ctx context.Context, req TransactionStatusRequest) (*TransactionStatusResponse, error) {
	if req.Initiator == "" {
		return nil, NewValidationError("initiator is required")
	}
	if req.SecurityCredential == "" {
		return nil, NewValidationError("security credential is required")
	}
	if req.TransactionID == "" {
		return nil, NewValidationError("transaction ID is required")
	}
	if req.PartyA == "" {
		return nil, NewValidationError("party A is required")
	}
	if req.QueueTimeOutURL == "" || req.ResultURL == "" {
		return nil, NewValidationError("queue timeout URL and result URL are required")
	}

	identifierType := req.IdentifierType
	if identifierType == 0 {
		identifierType = IdentifierShortcode
	}

	payload := transactionStatusPayload{
		Initiator:          req.Initiator,
		SecurityCredential: req.SecurityCredential,
		CommandID:          "TransactionStatusQuery",
		TransactionID:      req.TransactionID,
		PartyA:             req.PartyA,
		IdentifierType:     identifierType,
		Remarks:            req.Remarks,
		Occasion:           req.Occasion,
		QueueTimeOutURL:    req.QueueTimeOutURL,
		ResultURL:          req.ResultURL,
	}

	var out TransactionStatusResponse
	if err := c.post(ctx, pathTransactionStatus, payload, &out, 0, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
