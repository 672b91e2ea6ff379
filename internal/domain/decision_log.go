package domain

import "time"

// Decision es la decisión que tomó la estrategia en un ciclo de análisis.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// DecisionLog es la proyección de solo lectura de un log de decisión.
// Igual que Bot, la colección se reemplaza entera en cada fetch exitoso.
type DecisionLog struct {
	ID               string    `json:"id,omitempty"`
	BotID            string    `json:"bot_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Symbol           string    `json:"symbol"`
	Decision         Decision  `json:"decision"`
	CurrentPrice     Amount    `json:"current_price"`
	EntryPrice       *Amount   `json:"entry_price"`
	ProfitPercentage *Amount   `json:"profit_percentage"` // con signo
	StrategyName     string    `json:"strategy_name"`
}

// DecisionLogPage es la respuesta de los endpoints de logs: {logs, total}.
type DecisionLogPage struct {
	Logs  []DecisionLog `json:"logs"`
	Total int           `json:"total"`
}
