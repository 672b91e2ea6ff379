package dashboard_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/botdash/internal/dashboard"
	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
)

// --- Authenticator ---

type fakeAuth struct{ ok bool }

func (a fakeAuth) RequireAuth(context.Context) bool { return a.ok }

// --- BotSource / LogSource ---

type botStub struct {
	calls atomic.Int32
	fn    func(call int) ([]domain.Bot, error)
}

func (s *botStub) ListBots(ctx context.Context) ([]domain.Bot, error) {
	n := int(s.calls.Add(1))
	return s.fn(n)
}

func staticBots(bots []domain.Bot) *botStub {
	return &botStub{fn: func(int) ([]domain.Bot, error) { return bots, nil }}
}

type logStub struct {
	calls  atomic.Int32
	mu     sync.Mutex
	botIDs []string
	logs   []domain.DecisionLog
	err    error
}

func (s *logStub) FetchLogs(ctx context.Context, botID string, limit int) ([]domain.DecisionLog, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botIDs = append(s.botIDs, botID)
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.logs) {
		return s.logs[:limit], nil
	}
	return s.logs, nil
}

func (s *logStub) lastBotID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.botIDs) == 0 {
		return ""
	}
	return s.botIDs[len(s.botIDs)-1]
}

type healthStub struct{ err error }

func (h healthStub) Ping(context.Context) (time.Duration, error) {
	return time.Millisecond, h.err
}

// --- Renderer ---

type note struct {
	msg   string
	level ports.Level
}

type recorder struct {
	mu      sync.Mutex
	bots    [][]domain.Bot
	totals  []int
	metrics []domain.Metrics
	logs    [][]domain.DecisionLog
	empties []string
	conns   []domain.ConnectionSnapshot
	loading []bool
	notes   []note
}

func (r *recorder) RenderBots(bots []domain.Bot, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots = append(r.bots, bots)
	r.totals = append(r.totals, total)
}

func (r *recorder) RenderMetrics(m domain.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *recorder) RenderLogs(logs []domain.DecisionLog, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logs)
}

func (r *recorder) RenderEmpty(feed string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empties = append(r.empties, feed)
}

func (r *recorder) RenderConnection(s domain.ConnectionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = append(r.conns, s)
}

func (r *recorder) SetLoading(loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, loading)
}

func (r *recorder) Notify(message string, level ports.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{msg: message, level: level})
}

func (r *recorder) botRenders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bots)
}

func (r *recorder) lastBots() []domain.Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bots) == 0 {
		return nil
	}
	return r.bots[len(r.bots)-1]
}

func (r *recorder) notesAt(level ports.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if n.level == level {
			out = append(out, n.msg)
		}
	}
	return out
}

func (r *recorder) emptyFeeds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.empties...)
}

// --- Ticker manual ---

type manualTicker struct {
	period  time.Duration
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

// tick entrega un tick. Devuelve false si nadie lo recibió (timer desarmado).
func (m *manualTicker) tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

type tickers struct {
	mu   sync.Mutex
	list []*manualTicker
}

func (t *tickers) factory(d time.Duration) dashboard.Ticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	mt := &manualTicker{period: d, ch: make(chan time.Time)}
	t.list = append(t.list, mt)
	return mt
}

func (t *tickers) created() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.list)
}

func (t *tickers) live() []*manualTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*manualTicker
	for _, mt := range t.list {
		if !mt.stopped.Load() {
			out = append(out, mt)
		}
	}
	return out
}

func (t *tickers) last() *manualTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.list) == 0 {
		return nil
	}
	return t.list[len(t.list)-1]
}

// --- fixtures ---

func threeBots() []domain.Bot {
	return []domain.Bot{
		{ID: "bot-1", Symbol: "BTCBRL", Status: domain.BotRunning, Positioned: true, Strategy: domain.StrategyMovingAverage, InitialCapital: domain.ParseAmount("100")},
		{ID: "bot-2", Symbol: "ETHBRL", Status: domain.BotStopped, Strategy: domain.StrategyBreakout, InitialCapital: domain.ParseAmount("50")},
		{ID: "bot-3", Symbol: "BTCBRL", Status: domain.BotPaused, Strategy: domain.StrategyRSI, InitialCapital: domain.ParseAmount("abc")},
	}
}
