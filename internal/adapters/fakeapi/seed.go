package fakeapi

import (
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/google/uuid"
)

// BotSpec describe un bot a sembrar.
type BotSpec struct {
	Symbol     string
	Status     domain.BotStatus
	Strategy   domain.Strategy
	Positioned bool
	Capital    float64
	Trade      float64
	Entry      float64 // 0 = sin entry price
	Threshold  float64
}

// NewBot construye un domain.Bot con ID uuid a partir de spec.
func NewBot(spec BotSpec, createdAt time.Time) domain.Bot {
	b := domain.Bot{
		ID:                     uuid.NewString(),
		Symbol:                 spec.Symbol,
		Status:                 spec.Status,
		Positioned:             spec.Positioned,
		Strategy:               spec.Strategy,
		InitialCapital:         domain.NewAmount(spec.Capital),
		TradeAmount:            domain.NewAmount(spec.Trade),
		MinimumProfitThreshold: domain.NewAmount(spec.Threshold),
		CreatedAt:              createdAt.UTC(),
	}
	if spec.Entry > 0 {
		b.EntryPrice = domain.NewAmount(spec.Entry).Ptr()
	}
	return b
}

// DemoBots son los bots que sirve el modo -demo.
func DemoBots(now time.Time) []domain.Bot {
	specs := []BotSpec{
		{Symbol: "BTCBRL", Status: domain.BotRunning, Strategy: domain.StrategyMovingAverage, Positioned: true, Capital: 1000, Trade: 250, Entry: 342150.75, Threshold: 1.5},
		{Symbol: "ETHBRL", Status: domain.BotStopped, Strategy: domain.StrategyBreakout, Capital: 500.25, Trade: 100, Threshold: 2},
		{Symbol: "SOLBRL", Status: domain.BotRunning, Strategy: domain.StrategyRSI, Capital: 750, Trade: 150, Threshold: 0.8},
		{Symbol: "BTCBRL", Status: domain.BotPaused, Strategy: domain.StrategyMACD, Capital: 2000, Trade: 400, Threshold: 1},
	}
	bots := make([]domain.Bot, 0, len(specs))
	for i, spec := range specs {
		bots = append(bots, NewBot(spec, now.Add(-time.Duration(len(specs)-i)*24*time.Hour)))
	}
	return bots
}

// DemoLogs genera perBot logs por bot, uno cada 5 minutos, del más viejo al
// más nuevo.
func DemoLogs(bots []domain.Bot, perBot int, now time.Time) []domain.DecisionLog {
	decisions := []domain.Decision{domain.DecisionHold, domain.DecisionHold, domain.DecisionBuy, domain.DecisionHold, domain.DecisionSell}
	var logs []domain.DecisionLog
	for i := perBot - 1; i >= 0; i-- {
		for j, b := range bots {
			price := basePrice(b.Symbol) * (1 + float64((i+j)%7-3)/100)
			l := domain.DecisionLog{
				ID:           uuid.NewString(),
				BotID:        b.ID,
				Timestamp:    now.Add(-time.Duration(i) * 5 * time.Minute).UTC(),
				Symbol:       b.Symbol,
				Decision:     decisions[(i+j)%len(decisions)],
				CurrentPrice: domain.NewAmount(price),
				StrategyName: string(b.Strategy),
			}
			if b.Positioned && b.EntryPrice != nil {
				entry, _ := b.EntryPrice.Float64()
				l.EntryPrice = b.EntryPrice
				l.ProfitPercentage = domain.NewAmount((price - entry) / entry * 100).Ptr()
			}
			logs = append(logs, l)
		}
	}
	return logs
}

func basePrice(symbol string) float64 {
	switch symbol {
	case "BTCBRL":
		return 342000
	case "ETHBRL":
		return 18500
	case "SOLBRL":
		return 950
	default:
		return 100
	}
}

// NewDemo crea un Server sembrado con DemoBots y DemoLogs.
func NewDemo(opts Options) *Server {
	now := time.Now()
	s := New(opts)
	bots := DemoBots(now)
	s.SetBots(bots)
	s.SetLogs(DemoLogs(bots, 12, now))
	return s
}
