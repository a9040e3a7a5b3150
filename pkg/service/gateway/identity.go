package gateway

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

const identityKeyBits = 2048

// ParsePrivateKey parses a PEM encoded RSA private key in PKCS#1 or PKCS#8 form
func ParsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, goerr.Wrap(model.ErrValidation, "private key is not PEM encoded")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, goerr.Wrap(model.ErrValidation, "invalid PKCS#1 private key", goerr.V("error", err.Error()))
		}
		return key, nil

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, goerr.Wrap(model.ErrValidation, "invalid PKCS#8 private key", goerr.V("error", err.Error()))
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, goerr.Wrap(model.ErrValidation, "private key is not RSA")
		}
		return key, nil

	default:
		return nil, goerr.Wrap(model.ErrValidation, "unsupported PEM block", goerr.V("type", block.Type))
	}
}

// GenerateKey creates a new RSA key and returns it with its PKCS#8 PEM encoding
func GenerateKey() (*rsa.PrivateKey, string, error) {
	key, err := rsa.GenerateKey(rand.Reader, identityKeyBits)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to generate RSA key")
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to encode private key")
	}
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// EncodePublicKey returns the PKIX PEM encoding of pub
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode public key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// Fingerprint derives a device id from the public key: "sha256:" + hex digest of its PKIX DER form
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode public key")
	}
	sum := sha256.Sum256(der)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// SignChallenge signs "<nonce>:<timestamp>" with RSA PKCS#1 v1.5 over SHA-256
// and returns the base64 encoded signature
func SignChallenge(key *rsa.PrivateKey, nonce, timestamp string) (string, error) {
	digest := sha256.Sum256([]byte(nonce + ":" + timestamp))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign challenge")
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyChallenge checks a signature produced by SignChallenge
func VerifyChallenge(pub *rsa.PublicKey, nonce, timestamp, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return goerr.Wrap(err, "signature is not base64")
	}
	digest := sha256.Sum256([]byte(nonce + ":" + timestamp))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return goerr.Wrap(err, "signature mismatch")
	}
	return nil
}
