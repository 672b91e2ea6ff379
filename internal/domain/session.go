package domain

// Session es la identidad autenticada actual. Existe sii hay token persistido.
// No se trackea expiración en el cliente: el refresh es por tiempo.
type Session struct {
	Token string
	Email string
}

// Active devuelve true si la sesión tiene token.
func (s Session) Active() bool {
	return s.Token != ""
}

// ValidationOutcome es lo que pasó al validar el token contra el backend.
type ValidationOutcome int

const (
	ValidationNoToken ValidationOutcome = iota
	ValidationValid
	ValidationRejected // 2xx pero {valid:false}
	ValidationHTTPError
	ValidationTransportError
	ValidationMalformed
)

func (o ValidationOutcome) String() string {
	switch o {
	case ValidationNoToken:
		return "no_token"
	case ValidationValid:
		return "valid"
	case ValidationRejected:
		return "rejected"
	case ValidationHTTPError:
		return "http_error"
	case ValidationTransportError:
		return "transport_error"
	case ValidationMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// SessionAction es el efecto que la política de validación pide sobre la sesión.
type SessionAction int

const (
	SessionKeep SessionAction = iota
	SessionLogout
)

// DecideValidation traduce el resultado de una validación en (válido, acción).
// Invalidez y logout forzado van juntos: cualquier resultado que no sea
// ValidationValid con token presente implica logout. Sin token no hay nada
// que limpiar.
func DecideValidation(o ValidationOutcome) (bool, SessionAction) {
	switch o {
	case ValidationValid:
		return true, SessionKeep
	case ValidationNoToken:
		return false, SessionKeep
	default:
		return false, SessionLogout
	}
}
