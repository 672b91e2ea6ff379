package domain

import (
	"errors"
	"fmt"
)

// ErrAuthExpired indica que no hay sesión utilizable: el token no existe o
// el refresh falló. Es el único error que SessionClient deja salir hacia el
// controller para que deje de hacer llamadas autenticadas.
var ErrAuthExpired = errors.New("authentication expired")

// ErrNoToken es un ErrAuthExpired específico: no hay token persistido y no
// se envió ninguna request.
var ErrNoToken = fmt.Errorf("%w: no authentication token", ErrAuthExpired)

// TransportError envuelve un fallo de red (backend inalcanzable, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError es una respuesta no-2xx. Message es el {error} del body si vino.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// ValidationError es un body de respuesta que no se pudo decodificar.
// Se trata igual que un HTTPError.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthError es el fallo de login. Message es lo que se muestra al usuario.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthExpired es un atajo para errors.Is(err, ErrAuthExpired).
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}
