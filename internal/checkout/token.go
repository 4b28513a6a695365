package checkout

import (
	stderrors "errors"
	"fmt"
	"time"

	errors "github.com/Zura1555/ecommerce/internal"
	"github.com/golang-jwt/jwt/v5"
)

// OrderTokenIssuer mints and verifies the short-lived tokens checkout hands
// to the storefront so a customer can poll their order without an account.
// The token is scoped to one order id.
type OrderTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewOrderTokenIssuer(secret string, ttl time.Duration) *OrderTokenIssuer {
	return &OrderTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (i *OrderTokenIssuer) Issue(orderID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   orderID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign order token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the order id it was issued for.
func (i *OrderTokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.NewUnauthorizedError("order token expired", errors.ErrCodeOrderTokenExpired).WithCause(err)
		}
		return "", errors.NewUnauthorizedError("invalid order token", errors.ErrCodeInvalidOrderToken).WithCause(err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.NewUnauthorizedError("invalid order token", errors.ErrCodeInvalidOrderToken)
	}

	return claims.Subject, nil
}
