package ports

import (
	"context"

	"github.com/alejandrodnm/botdash/internal/domain"
)

// SessionStore persiste la sesión del cliente como dos entradas clave-valor
// (token y email) bajo un namespace de la aplicación.
type SessionStore interface {
	// Load devuelve la sesión persistida. ok es false si no hay token.
	Load(ctx context.Context) (s domain.Session, ok bool, err error)

	// Save reemplaza token y email juntos.
	Save(ctx context.Context, s domain.Session) error

	// SaveToken reemplaza solo el token, conservando el email (refresh).
	SaveToken(ctx context.Context, token string) error

	// Clear borra ambas entradas. No falla si no existían.
	Clear(ctx context.Context) error

	// Close libera la conexión subyacente.
	Close() error
}
