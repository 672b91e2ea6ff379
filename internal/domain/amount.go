package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount es un valor numérico del backend (capital, precios, porcentajes).
// El backend a veces lo envía como número y a veces como string; cualquier
// valor no numérico o ausente se interpreta como cero.
type Amount struct {
	decimal.Decimal
}

// NewAmount crea un Amount desde un float64.
func NewAmount(v float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(v)}
}

// ParseAmount interpreta s como número. Devuelve cero si no es numérico.
func ParseAmount(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{Decimal: decimal.Zero}
	}
	return Amount{Decimal: d}
}

// UnmarshalJSON implementa la coerción numérica: "100", 100 y 100.0 son
// equivalentes; "abc", "" y null valen cero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = ParseAmount(strings.Trim(string(data), `"`))
	return nil
}

// Ptr devuelve un puntero a una copia de a. Útil para campos opcionales.
func (a Amount) Ptr() *Amount {
	return &a
}
