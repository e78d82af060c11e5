package daraja

import "context"

// IdentifierShortcode is Daraja's party-identifier code for an
// organization shortcode, the default for B2B and Reversal parties.
const IdentifierShortcode = 4

// B2BRequest moves money between two business shortcodes. Privileged.
type B2BRequest struct {
	Initiator              string
	SecurityCredential     string
	CommandID              string
	Amount                 float64
	SenderShortCode        string
	ReceiverShortCode      string
	SenderIdentifierType   int
	ReceiverIdentifierType int
	AccountReference       string
	Remarks                string
	QueueTimeOutURL        string
	ResultURL              string
}

type B2BResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// Daraja spells the receiver field "Reciever"; the wire tag keeps the typo.
type b2bPayload struct {
	Initiator              string `json:"Initiator"`
	SecurityCredential     string `json:"SecurityCredential"`
	CommandID              string `json:"CommandID"`
	SenderIdentifierType   int    `json:"SenderIdentifierType"`
	RecieverIdentifierType int    `json:"RecieverIdentifierType"`
	Amount                 int    `json:"Amount"`
	PartyA                 string `json:"PartyA"`
	PartyB                 string `json:"PartyB"`
	AccountReference       string `json:"AccountReference"`
	Remarks                string `json:"Remarks"`
	QueueTimeOutURL        string `json:"QueueTimeOutURL"`
	ResultURL              string `json:"ResultURL"`
}

func (c *Client) B2B(ctx context.Context, req B2BRequest) (*B2BResponse, error) {
	if req.Initiator == "" {
		return nil, NewValidationError("initiator is required")
	}
	if req.SecurityCredential == "" {
		return nil, NewValidationError("security credential is required")
	}
	if req.SenderShortCode == "" || req.ReceiverShortCode == "" {
		return nil, NewValidationError("sender and receiver shortcodes are required")
	}
	if req.CommandID == "" {
		return nil, NewValidationError("command ID is required")
	}
	if req.QueueTimeOutURL == "" || req.ResultURL == "" {
		return nil, NewValidationError("queue timeout URL and result URL are required")
	}

	amount := roundAmount(req.Amount)
	if amount < 1 {
		return nil, NewValidationError("amount %v rounds to %d; minimum is 1 KES", req.Amount, amount)
	}

	senderType := req.SenderIdentifierType
	if senderType == 0 {
		senderType = IdentifierShortcode
	}
	receiverType := req.ReceiverIdentifierType
	if receiverType == 0 {
		receiverType = IdentifierShortcode
	}

	payload := b2bPayload{
		Initiator:              req.Initiator,
		SecurityCredential:     req.SecurityCredential,
		CommandID:              req.CommandID,
		SenderIdentifierType:   senderType,
		RecieverIdentifierType: receiverType,
		Amount:                 amount,
		PartyA:                 req.SenderShortCode,
		PartyB:                 req.ReceiverShortCode,
		AccountReference:       req.AccountReference,
		Remarks:                req.Remarks,
		QueueTimeOutURL:        req.QueueTimeOutURL,
		ResultURL:              req.ResultURL,
	}

	var out B2BResponse
	if err := c.post(ctx, pathB2B, payload, &out, 0, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
