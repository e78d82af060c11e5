package daraja

// Environment selects the Daraja deployment a client talks to.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

func (e Environment) BaseURL() string {
	if e == Production {
		return "https://api.safaricom.co.ke"
	}
	return "https://sandbox.safaricom.co.ke"
}

// Fixed endpoint paths, identical across environments.
const (
	pathOAuth             = "/oauth/v1/generate?grant_type=client_credentials"
	pathSTKPush           = "/mpesa/stkpush/v1/processrequest"
	pathSTKQuery          = "/mpesa/stkpushquery/v1/query"
	pathB2C               = "/mpesa/b2c/v3/paymentrequest"
	pathB2B               = "/mpesa/b2b/v1/paymentrequest"
	pathReversal          = "/mpesa/reversal/v1/request"
	pathTransactionStatus = "/mpesa/transactionstatus/v1/query"
	pathC2BSimulate       = "/mpesa/c2b/v2/simulate"
	pathC2BRegister       = "/mpesa/c2b/v2/registerurl"
	pathQRGenerate        = "/mpesa/qrcode/v1/generate"
)
