package domain

import "github.com/shopspring/decimal"

// Metrics son los agregados que se muestran arriba de la tabla de bots.
type Metrics struct {
	Total        int
	Active       int // status == RUNNING
	Positioned   int
	TotalCapital decimal.Decimal
	BySymbol     map[string]int
}

// ComputeMetrics recalcula los agregados desde cero en una sola pasada.
// No se arrastran contadores entre loads.
func ComputeMetrics(bots []Bot) Metrics {
	m := Metrics{
		Total:        len(bots),
		TotalCapital: decimal.Zero,
		BySymbol:     make(map[string]int),
	}
	for _, b := range bots {
		if b.Status == BotRunning {
			m.Active++
		}
		if b.Positioned {
			m.Positioned++
		}
		m.TotalCapital = m.TotalCapital.Add(b.InitialCapital.Decimal)
		if b.Symbol != "" {
			m.BySymbol[b.Symbol]++
		}
	}
	return m
}
