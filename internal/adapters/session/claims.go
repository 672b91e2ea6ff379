package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims es el payload del JWT que emite el backend.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ExpiresIn devuelve cuánto falta para la expiración, o 0 si no tiene exp.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// DecodeClaims lee el payload del token SIN verificar la firma: el cliente no
// tiene el secreto. Solo sirve para mostrar información; nunca decide refresh.
func DecodeClaims(token string) (*Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("session.DecodeClaims: %w", err)
	}
	return &c, nil
}
