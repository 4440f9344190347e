package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidJWTToken = errors.New("session token is invalid")
	ErrExpiredJWTToken = errors.New("session token is expired")
)

// SessionClaims are the claims the identity provider puts in its session token.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.StandardClaims
}

type TokenVerifier interface {
	Verify(tokenString string) (*SessionClaims, error)
}

// JWTVerifier checks session tokens issued by the identity provider: RS256
// against its public key when one is configured, HS256 with a shared secret
// otherwise.
type JWTVerifier struct {
	method jwt.SigningMethod
	key    interface{}
}

func NewJWTVerifier(publicKeyPEM, secret string) (*JWTVerifier, error) {
	if pem := strings.TrimSpace(publicKeyPEM); pem != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse identity public key: %w", err)
		}
		return &JWTVerifier{method: jwt.SigningMethodRS256, key: key}, nil
	}
	if secret == "" {
		return nil, errors.New("identity JWT key or secret is required")
	}
	return &JWTVerifier{method: jwt.SigningMethodHS256, key: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != v.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredJWTToken
		}
		return nil, ErrInvalidJWTToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidJWTToken
	}
	return claims, nil
}
