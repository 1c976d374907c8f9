package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingHeader   = errors.New("no authorization header")
	ErrMalformedHeader = errors.New("invalid authorization header")
	ErrTokenExpired    = errors.New("token has expired")
	ErrInvalidToken    = errors.New("invalid token")
)

// Verifier validates RS256 bearer tokens against a single pinned certificate.
// There is no key discovery or rotation: a token either verifies against the
// configured public key or it is rejected.
type Verifier struct {
	key *rsa.PublicKey
}

// NewVerifier parses a PEM-encoded X.509 certificate and pins its RSA public key.
func NewVerifier(certPEM []byte) (*Verifier, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("auth cert: no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth cert: %w", err)
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("auth cert: public key is %T, want RSA", cert.PublicKey)
	}
	return &Verifier{key: key}, nil
}

// VerifyHeader extracts the bearer token from an Authorization header value
// ("Bearer <token>", scheme case-insensitive) and returns the verified
// subject claim.
func (v *Verifier) VerifyHeader(header string) (string, error) {
	token, err := BearerToken(header)
	if err != nil {
		return "", err
	}
	return v.Verify(token)
}

// Verify validates the raw token signature and expiry and returns the
// subject claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		// Pin the algorithm so that HS256-with-cert-bytes or alg=none tokens
		// never reach signature verification.
		if t.Method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// BearerToken strips the bearer scheme from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", ErrMalformedHeader
	}
	return token, nil
}
