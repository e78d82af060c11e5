package daraja

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
)

// EncryptCredential produces the SecurityCredential Daraja requires for
// privileged commands (B2C, B2B, Reversal, Transaction Status): the
// initiator password RSA-encrypted under the environment's public
// certificate and base64 encoded.
//
// Daraja mandates PKCS#1 v1.5 padding; OAEP produces credentials the
// gateway silently rejects. Stateless: nothing here is cached, and callers
// must not cache the result across environments.
func EncryptCredential(initiatorPassword, certificatePEM string) (string, error) {
	pub, err := publicKeyFromPEM([]byte(certificatePEM))
	if err != nil {
		return "", NewEncryptionError(err)
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(initiatorPassword))
	if err != nil {
		return "", NewEncryptionError(err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func publicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in certificate")
	}

	if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			return pub, nil
		}
		return nil, errors.New("certificate does not carry an RSA public key")
	}

	// Safaricom has shipped the sandbox key as a bare PUBLIC KEY block.
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("PEM block does not carry an RSA public key")
	}
	return rsaPub, nil
}
