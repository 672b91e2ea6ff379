package domain

import (
	"encoding/json"
	"time"
)

// BotStatus es el estado operativo de un trading bot en el backend.
type BotStatus string

const (
	BotRunning BotStatus = "RUNNING"
	BotStopped BotStatus = "STOPPED"
	BotPaused  BotStatus = "PAUSED"
)

// Label devuelve el texto que se muestra en la tabla.
func (s BotStatus) Label() string {
	switch s {
	case BotRunning:
		return "Running"
	case BotStopped:
		return "Stopped"
	case BotPaused:
		return "Paused"
	case "":
		return "-"
	default:
		return string(s)
	}
}

// Strategy es la estrategia de trading configurada en el bot.
type Strategy string

const (
	StrategyMovingAverage Strategy = "MovingAverage"
	StrategyBreakout      Strategy = "Breakout"
	StrategyRSI           Strategy = "RSI"
	StrategyMACD          Strategy = "MACD"
)

// Label devuelve el nombre legible de la estrategia.
func (s Strategy) Label() string {
	switch s {
	case StrategyMovingAverage:
		return "Moving Average"
	case StrategyBreakout:
		return "Breakout"
	case "":
		return "-"
	default:
		return string(s)
	}
}

// Bot es la proyección de solo lectura de un trading bot tal como la devuelve
// GET /trading/list. Cada fetch exitoso reemplaza la colección completa.
type Bot struct {
	ID                     string    `json:"id"`
	Symbol                 string    `json:"symbol"`
	Status                 BotStatus `json:"status"`
	Positioned             bool      `json:"positioned"`
	Strategy               Strategy  `json:"strategy"`
	InitialCapital         Amount    `json:"initial_capital"`
	TradeAmount            Amount    `json:"trade_amount"`
	EntryPrice             *Amount   `json:"entry_price"`
	MinimumProfitThreshold Amount    `json:"minimum_profit_threshold"`
	CreatedAt              time.Time `json:"created_at"`
}

// UnmarshalJSON acepta también "is_positioned", que es como el backend
// serializa el flag en su DTO.
func (b *Bot) UnmarshalJSON(data []byte) error {
	type plain Bot
	aux := struct {
		*plain
		IsPositioned *bool `json:"is_positioned"`
	}{plain: (*plain)(b)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.IsPositioned != nil && !b.Positioned {
		b.Positioned = *aux.IsPositioned
	}
	return nil
}

// ShortID devuelve el ID truncado a 8 caracteres para mostrar en tablas.
func (b Bot) ShortID() string {
	if len(b.ID) <= 8 {
		return b.ID
	}
	return b.ID[:8] + "..."
}
