package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBots() []Bot {
	return []Bot{
		{ID: "a", Symbol: "BTCBRL", Status: BotRunning, Strategy: StrategyMovingAverage},
		{ID: "b", Symbol: "ETHBRL", Status: BotStopped, Strategy: StrategyRSI},
		{ID: "c", Symbol: "BTCBRL", Status: BotPaused, Strategy: StrategyRSI},
	}
}

func TestFilterBots_EmptyFilterIsWildcard(t *testing.T) {
	got := FilterBots(sampleBots(), BotFilter{})
	assert.Len(t, got, 3)
}

func TestFilterBots_ByStatus(t *testing.T) {
	got := FilterBots(sampleBots(), BotFilter{Status: BotRunning})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestFilterBots_Combined(t *testing.T) {
	got := FilterBots(sampleBots(), BotFilter{Symbol: "BTCBRL", Strategy: StrategyRSI})
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestFilterBots_Idempotent(t *testing.T) {
	bots := sampleBots()
	f := BotFilter{Symbol: "BTCBRL"}

	first := FilterBots(bots, f)
	second := FilterBots(bots, f)
	assert.Equal(t, first, second)

	// re-filtrar el resultado tampoco cambia nada
	assert.Equal(t, first, FilterBots(first, f))
}

func TestFilterBots_DoesNotMutateInput(t *testing.T) {
	bots := sampleBots()
	_ = FilterBots(bots, BotFilter{Status: BotStopped})
	assert.Equal(t, sampleBots(), bots)
}

func TestFilterLogs(t *testing.T) {
	logs := []DecisionLog{
		{Symbol: "BTCBRL", Decision: DecisionBuy},
		{Symbol: "BTCBRL", Decision: DecisionHold},
		{Symbol: "ETHBRL", Decision: DecisionHold},
	}

	assert.Len(t, FilterLogs(logs, LogFilter{}), 3)
	assert.Len(t, FilterLogs(logs, LogFilter{Decision: DecisionHold}), 2)
	assert.Len(t, FilterLogs(logs, LogFilter{Decision: DecisionHold, Symbol: "ETHBRL"}), 1)
	assert.Empty(t, FilterLogs(logs, LogFilter{Decision: DecisionSell}))
}

func TestBotFilter_Set(t *testing.T) {
	var f BotFilter
	require.NoError(t, f.Set("status", "RUNNING"))
	require.NoError(t, f.Set("Symbol", "BTCBRL"))
	require.NoError(t, f.Set("strategy", ""))
	assert.Equal(t, BotFilter{Symbol: "BTCBRL", Status: BotRunning}, f)

	assert.Error(t, f.Set("capital", "10"))
}

func TestLogFilter_Set(t *testing.T) {
	var f LogFilter
	require.NoError(t, f.Set("decision", "SELL"))
	assert.Equal(t, DecisionSell, f.Decision)
	assert.Error(t, f.Set("status", "RUNNING"))
}
