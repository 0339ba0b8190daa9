package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidKey is returned when session signing key material cannot be parsed.
var ErrInvalidKey = errors.New("invalid key")

// ReadKeyPEM resolves the JWT_PRIVATE_KEY / JWT_PUBLIC_KEY config values:
// inline PEM is returned as-is, anything else is treated as a path to a key file.
func ReadKeyPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	return os.ReadFile(s)
}

func decodeKeyBlock(s string) (*pem.Block, error) {
	pemBytes, err := ReadKeyPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}
	return block, nil
}

// ParsePrivateKey parses the session signing key from config. RSA keys in
// PKCS#1 or PKCS#8 form and ECDSA keys are accepted; the matching JWT
// algorithm is picked at signing time via KeyAlg.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodeKeyBlock(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS#8 key cannot sign", ErrInvalidKey)
		}
		return signer, nil
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unsupported private key block %q", ErrInvalidKey, block.Type)
	}
}

// ParsePublicKey parses the session verification key from config.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodeKeyBlock(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unsupported public key block %q", ErrInvalidKey, block.Type)
	}
}

// KeyAlg maps a key to the JWT algorithm session tokens are signed and
// verified with: RS256 for RSA, ES256 for ECDSA. Empty for anything else.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}
