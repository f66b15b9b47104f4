package ipc

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload an AUTH command's bearer token must carry. Only
// the registered claims are checked; the connection is authenticated the
// moment the signature and expiry validate.
type Claims struct {
	jwt.RegisteredClaims
}

// tokenValidator verifies AUTH tokens against a single HMAC secret, the
// same signing method the teacher's REST auth middleware requires.
type tokenValidator struct {
	secret []byte
}

func newTokenValidator(secret string) *tokenValidator {
	if secret == "" {
		return nil
	}
	return &tokenValidator{secret: []byte(secret)}
}

// validate parses and verifies tokenString, returning an error describing
// why it was rejected.
func (v *tokenValidator) validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("token failed validation")
	}
	return nil
}

// GenerateToken issues a bearer token for testing/operational tooling
// against the given secret.
func GenerateToken(secret string) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "vamana-ipc",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
