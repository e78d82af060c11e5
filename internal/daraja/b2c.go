package daraja

import (
	"context"

	"github.com/google/uuid"
)

// B2C command identifiers per Daraja's enumeration.
const (
	CommandBusinessPayment  = "BusinessPayment"
	CommandSalaryPayment    = "SalaryPayment"
	CommandPromotionPayment = "PromotionPayment"
)

// B2CRequest pays out from a business shortcode to a customer MSISDN.
// Privileged: requires the initiator name and a freshly-encrypted
// SecurityCredential (EncryptCredential).
type B2CRequest struct {
	OriginatorConversationID string
	InitiatorName            string
	SecurityCredential       string
	CommandID                string
	Amount                   float64
	ShortCode                string
	PhoneNumber              string
	Remarks                  string
	QueueTimeOutURL          string
	ResultURL                string
	Occasion                 string
}

type B2CResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

type b2cPayload struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	InitiatorName            string `json:"InitiatorName"`
	SecurityCredential       string `json:"SecurityCredential"`
	CommandID                string `json:"CommandID"`
	Amount                   int    `json:"Amount"`
	PartyA                   string `json:"PartyA"`
	PartyB                   string `json:"PartyB"`
	Remarks                  string `json:"Remarks"`
	QueueTimeOutURL          string `json:"QueueTimeOutURL"`
	ResultURL                string `json:"ResultURL"`
	Occasion                 string `json:"Occasion"`
}

func (c *Client) B2C(ctx context.Context, req B2CRequest) (*B2CResponse, error) {
	if req.InitiatorName == "" {
		return nil, NewValidationError("initiator name is required")
	}
	if req.SecurityCredential == "" {
		return nil, NewValidationError("security credential is required")
	}
	if req.ShortCode == "" {
		return nil, NewValidationError("shortcode is required")
	}
	if req.QueueTimeOutURL == "" || req.ResultURL == "" {
		return nil, NewValidationError("queue timeout URL and result URL are required")
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
		commandID = CommandBusinessPayment
	}
	originatorID := req.OriginatorConversationID
	if originatorID == "" {
		originatorID = uuid.NewString()
	}

	payload := b2cPayload{
		OriginatorConversationID: originatorID,
		InitiatorName:            req.InitiatorName,
		SecurityCredential:       req.SecurityCredential,
		CommandID:                commandID,
		Amount:                   amount,
		PartyA:                   req.ShortCode,
		PartyB:                   phone,
		Remarks:                  req.Remarks,
		QueueTimeOutURL:          req.QueueTimeOutURL,
		ResultURL:                req.ResultURL,
		Occasion:                 req.Occasion,
	}

	var out B2CResponse
	if err := c.post(ctx, pathB2C, payload, &out, 0, 0); err != nil {
		return nil, err
	}

	c.logger.Info("b2c payment accepted",
		"conversation_id", out.ConversationID,
		"originator_conversation_id", out.OriginatorConversationID,
	)
	return &out, nil
}
