package domain

import (
	"fmt"
	"strings"
)

// BotFilter restringe la tabla de bots. Un campo vacío no restringe.
type BotFilter struct {
	Symbol   string
	Status   BotStatus
	Strategy Strategy
}

// LogFilter restringe la tabla de logs. Un campo vacío no restringe.
type LogFilter struct {
	Decision Decision
	Symbol   string
}

// FilterState agrupa los filtros de cada feed. Solo lo mutan eventos de UI.
type FilterState struct {
	Bots BotFilter
	Logs LogFilter
}

// Set asigna un campo por nombre ("symbol", "status", "strategy").
func (f *BotFilter) Set(field, value string) error {
	switch strings.ToLower(field) {
	case "symbol":
		f.Symbol = value
	case "status":
		f.Status = BotStatus(value)
	case "strategy":
		f.Strategy = Strategy(value)
	default:
		return fmt.Errorf("domain.BotFilter: unknown field %q", field)
	}
	return nil
}

// Set asigna un campo por nombre ("decision", "symbol").
func (f *LogFilter) Set(field, value string) error {
	switch strings.ToLower(field) {
	case "decision":
		f.Decision = Decision(value)
	case "symbol":
		f.Symbol = value
	default:
		return fmt.Errorf("domain.LogFilter: unknown field %q", field)
	}
	return nil
}

// FilterBots devuelve los bots que cumplen todos los campos no vacíos de f.
// Es pura: no modifica bots y siempre devuelve un slice nuevo.
func FilterBots(bots []Bot, f BotFilter) []Bot {
	out := make([]Bot, 0, len(bots))
	for _, b := range bots {
		if f.Symbol != "" && b.Symbol != f.Symbol {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Strategy != "" && b.Strategy != f.Strategy {
			continue
		}
		out = append(out, b)
	}
	return out
}

// FilterLogs devuelve los logs que cumplen todos los campos no vacíos de f.
func FilterLogs(logs []DecisionLog, f LogFilter) []DecisionLog {
	out := make([]DecisionLog, 0, len(logs))
	for _, l := range logs {
		if f.Decision != "" && l.Decision != f.Decision {
			continue
		}
		if f.Symbol != "" && l.Symbol != f.Symbol {
			continue
		}
		out = append(out, l)
	}
	return out
}
