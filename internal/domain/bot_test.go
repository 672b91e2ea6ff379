package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBot_UnmarshalMixedNumbers(t *testing.T) {
	raw := `{
		"id": "5f0c6c1e-8e3a-4d0e-9d55-0d4f1d2c9a10",
		"symbol": "BTCBRL",
		"status": "RUNNING",
		"is_positioned": true,
		"strategy": "RSI",
		"initial_capital": "1000.50",
		"trade_amount": 100,
		"entry_price": null,
		"minimum_profit_threshold": "abc",
		"created_at": "2025-06-01T12:00:00Z"
	}`

	var b Bot
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, BotRunning, b.Status)
	assert.True(t, b.Positioned, "is_positioned debe mapear a Positioned")
	assert.Equal(t, "1000.5", b.InitialCapital.String())
	assert.Equal(t, "100", b.TradeAmount.String())
	assert.Nil(t, b.EntryPrice)
	assert.True(t, b.MinimumProfitThreshold.IsZero())
	assert.Equal(t, "5f0c6c1e...", b.ShortID())
	assert.Equal(t, 2025, b.CreatedAt.Year())
}

func TestBot_UnmarshalPositionedField(t *testing.T) {
	var b Bot
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","positioned":true,"entry_price":"250000"}`), &b))
	assert.True(t, b.Positioned)
	require.NotNil(t, b.EntryPrice)
	assert.Equal(t, "250000", b.EntryPrice.String())
	assert.Equal(t, "x", b.ShortID())
}

func TestDecisionLogPage_Unmarshal(t *testing.T) {
	raw := `{"logs":[{"timestamp":"2025-06-01T12:00:00Z","symbol":"ETHBRL","decision":"SELL",
		"current_price":15000.25,"entry_price":14000,"profit_percentage":-1.5,"strategy_name":"RSI"}],"total":1}`

	var page DecisionLogPage
	require.NoError(t, json.Unmarshal([]byte(raw), &page))
	require.Len(t, page.Logs, 1)

	l := page.Logs[0]
	assert.Equal(t, DecisionSell, l.Decision)
	require.NotNil(t, l.ProfitPercentage)
	assert.Equal(t, "-1.5", l.ProfitPercentage.String())
	assert.Equal(t, 1, page.Total)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Running", BotRunning.Label())
	assert.Equal(t, "-", BotStatus("").Label())
	assert.Equal(t, "ERROR", BotStatus("ERROR").Label())
	assert.Equal(t, "Moving Average", StrategyMovingAverage.Label())
	assert.Equal(t, "MACD", StrategyMACD.Label())
}
