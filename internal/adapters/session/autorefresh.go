package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SetupAutoRefresh arranca un refresh periódico en background cada
// cfg.RefreshInterval. Los ticks sin sesión no hacen nada.
// La función devuelta lo detiene y espera a que termine; es idempotente.
func (c *Client) SetupAutoRefresh(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.IsAuthenticated(ctx) {
					continue
				}
				if !c.RefreshToken(ctx) {
					slog.Warn("scheduled token refresh failed")
				}
			}
		}
	}()

	slog.Debug("token auto-refresh armed", "interval", c.cfg.RefreshInterval)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
