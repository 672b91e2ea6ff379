package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
)

// BotSource obtiene la lista de bots del backend.
type BotSource interface {
	ListBots(ctx context.Context) ([]domain.Bot, error)
}

// LogSource obtiene logs de decisión. botID vacío = logs de todos los bots.
type LogSource interface {
	FetchLogs(ctx context.Context, botID string, limit int) ([]domain.DecisionLog, error)
}

// HealthChecker sondea la alcanzabilidad del backend (GET /health).
type HealthChecker interface {
	Ping(ctx context.Context) (time.Duration, error)
}
