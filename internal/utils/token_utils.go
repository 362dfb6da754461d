package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned for a valid token that names no acting user.
var ErrMissingSubject = errors.New("token carries no subject")

// GenerateAccessToken signs an HS256 token whose subject is the acting user recorded on ledger changes.
func GenerateAccessToken(userID, secret string, ttl time.Duration, issuer string, now time.Time) (string, error) {
	if userID == "" {
		return "", ErrMissingSubject
	}
	if secret == "" {
		return "", errors.New("signing secret is required")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the signature and standard claims and returns the acting user.
// jwt.ErrTokenExpired and jwt.ErrTokenNotValidYet are preserved for errors.Is.
func ParseAccessToken(tokenString, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}
