package dashboard

import (
	"sync"
	"time"
)

// Ticker es la parte de *time.Ticker que usa el controller.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory crea un Ticker con el período dado. Los tests inyectan uno
// manual para avanzar el tiempo a mano.
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker es el TickerFactory por defecto.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// repeatingTask es el handle del timer de auto-refresh. Cada tick llama a
// fn con el propio handle, así el dueño puede ignorar ticks de un handle que
// ya no es el vigente. Stop es idempotente y no espera a que fn termine:
// fn puede llamar a Stop sin deadlock.
type repeatingTask struct {
	ticker Ticker
	stop   chan struct{}
	once   sync.Once
}

func startRepeating(t Ticker, fn func(*repeatingTask)) *repeatingTask {
	rt := &repeatingTask{ticker: t, stop: make(chan struct{})}
	go rt.loop(fn)
	return rt
}

func (rt *repeatingTask) loop(fn func(*repeatingTask)) {
	for {
		select {
		case <-rt.stop:
			return
		case <-rt.ticker.C():
			// stop gana si llegaron los dos a la vez
			select {
			case <-rt.stop:
				return
			default:
			}
			fn(rt)
		}
	}
}

// Stop desarma el timer. Después de Stop, fn no vuelve a empezar.
func (rt *repeatingTask) Stop() {
	rt.once.Do(func() {
		close(rt.stop)
		rt.ticker.Stop()
	})
}
