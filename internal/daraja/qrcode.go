package daraja

import "context"

// QR transaction-type codes per Daraja's Dynamic QR enumeration.
const (
	QRTrxBuyGoods       = "BG"
	QRTrxWithdrawAgent  = "WA"
	QRTrxPaybill        = "PB"
	QRTrxSendMoney      = "SM"
	QRTrxSendToBusiness = "SB"
)

// QRRequest generates a Dynamic QR code a customer can scan to pay.
type QRRequest struct {
	MerchantName string
	RefNo        string
	Amount       float64
	TrxCode      string
	CPI          string
	Size         string
}

// QRResponse carries a base64-encoded PNG, not a structured business
// result.
type QRResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	RequestID           string `json:"RequestID"`
	ResponseDescription string `json:"ResponseDescription"`
	QRCode              string `json:"QRCode"`
}

type qrPayload struct {
	MerchantName string `json:"MerchantName"`
	RefNo        string `json:"RefNo"`
	Amount       int    `json:"Amount"`
	TrxCode      string `json:"TrxCode"`
	CPI          string `json:"CPI"`
	Size         string `json:"Size"`
}

func (c *Client) GenerateQR(ctx context.Context, req QRRequest) (*QRResponse, error) {
	if req.MerchantName == "" {
		return nil, NewValidationError("merchant name is required")
	}
	if req.RefNo == "" {
		return nil, NewValidationError("reference number is required")
	}
	if req.TrxCode == "" {
		return nil, NewValidationError("transaction type code is required")
	}
	if req.CPI == "" {
		return nil, NewValidationError("credit party identifier is required")
	}

	amount := roundAmount(req.Amount)
	if amount < 1 {
		return nil, NewValidationError("amount %v rounds to %d; minimum is 1 KES", req.Amount, amount)
	}

	size := req.Size
	if size == "" {
		size = "300"
	}

	payload := qrPayload{
		MerchantName: req.MerchantName,
		RefNo:        req.RefNo,
		Amount:       amount,
		TrxCode:      req.TrxCode,
		CPI:          req.CPI,
		Size:         size,
	}

	var out QRResponse
	if err := c.post(ctx, pathQRGenerate, payload, &out, 0, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
