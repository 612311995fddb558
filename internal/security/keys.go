package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when the signing secret, PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// minSecretLen is the shortest HMAC secret accepted for HS256.
const minSecretLen = 16

// SigningKey pairs a JWT signing method with its sign and verify keys.
type SigningKey struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
}

// Alg returns the JWT alg header value (HS256, RS256 or ES256).
func (k SigningKey) Alg() string {
	if k.method == nil {
		return ""
	}
	return k.method.Alg()
}

// NewHMACKey returns an HS256 SigningKey for the shared secret.
func NewHMACKey(secret []byte) (SigningKey, error) {
	if len(secret) < minSecretLen {
		return SigningKey{}, ErrInvalidKey
	}
	return SigningKey{method: jwt.SigningMethodHS256, signKey: secret, verifyKey: secret}, nil
}

// NewAsymmetricKey returns an RS256 or ES256 SigningKey for the key pair.
func NewAsymmetricKey(private crypto.Signer, public crypto.PublicKey) (SigningKey, error) {
	if private == nil || public == nil {
		return SigningKey{}, ErrInvalidKey
	}
	var method jwt.SigningMethod
	switch KeyAlg(public) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return SigningKey{}, ErrInvalidKey
	}
	if KeyAlg(private.Public()) != method.Alg() {
		return SigningKey{}, ErrInvalidKey
	}
	return SigningKey{method: method, signKey: private, verifyKey: public}, nil
}

// LoadSigningKey builds the SigningKey from configuration. A non-empty secret selects HS256;
// otherwise privatePEM and publicPEM (inline PEM or file paths) select RS256/ES256.
func LoadSigningKey(secret, privatePEM, publicPEM string) (SigningKey, error) {
	if s := strings.TrimSpace(secret); s != "" {
		return NewHMACKey([]byte(s))
	}
	private, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return SigningKey{}, err
	}
	public, err := ParsePublicKey(publicPEM)
	if err != nil {
		return SigningKey{}, err
	}
	return NewAsymmetricKey(private, public)
}

// LoadPEM reads content from path if s does not look like inline PEM; otherwise returns s as bytes.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded private key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
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
			return nil, ErrInvalidKey
		}
		return signer, nil
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded public key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA P-256; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		if k.Curve == nil || k.Curve.Params().Name != "P-256" {
			return ""
		}
		return "ES256"
	default:
		return ""
	}
}
