// Package dashboard coordina el ciclo de polling del dashboard: fetch de cada
// feed, filtros en cliente, estado de conexión y el timer de auto-refresh.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultLogsLimit       = 10
	defaultDebounce        = 300 * time.Millisecond
)

var (
	// ErrNotAuthenticated: Init sin sesión persistida.
	ErrNotAuthenticated = errors.New("dashboard: not authenticated")
	// ErrAlreadyInitialized: Init llamado dos veces sobre el mismo controller.
	ErrAlreadyInitialized = errors.New("dashboard: already initialized")
)

// Authenticator es lo que el controller necesita del SessionClient.
type Authenticator interface {
	RequireAuth(ctx context.Context) bool
}

// Config controla la cadencia y los límites del polling.
type Config struct {
	RefreshInterval time.Duration // período del auto-refresh
	AutoRefresh     bool          // armar el timer en Init
	LogsLimit       int           // logs por fetch
	Debounce        time.Duration // espera de los filtros; negativo = inmediato
	BotID           string        // bot seleccionado para el feed de logs; vacío = todos
}

// Option modifica el Controller en construcción.
type Option func(*Controller)

// WithTickerFactory reemplaza el ticker del auto-refresh.
func WithTickerFactory(f TickerFactory) Option {
	return func(c *Controller) { c.newTicker = f }
}

// WithConnectionStatus comparte el ConnectionStatus del proceso.
func WithConnectionStatus(s *domain.ConnectionStatus) Option {
	return func(c *Controller) { c.conn = s }
}

// WithClock reemplaza time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// feed es el estado de un feed: última colección buena y guardas de secuencia.
type feed struct {
	id     FeedID
	state  State
	loaded bool // hubo al menos un fetch exitoso

	issued  uint64 // último número de secuencia emitido
	applied uint64 // respuesta más nueva aplicada

	bots []domain.Bot
	logs []domain.DecisionLog
}

// Controller es el PollingController.
type Controller struct {
	cfg       Config
	auth      Authenticator
	bots      ports.BotSource
	logs      ports.LogSource
	health    ports.HealthChecker
	render    ports.Renderer
	conn      *domain.ConnectionStatus
	newTicker TickerFactory
	now       func() time.Time

	mu          sync.Mutex
	baseCtx     context.Context
	initialized bool
	destroyed   bool
	authExpired bool
	autoRefresh bool
	feeds       map[FeedID]*feed
	filters     domain.FilterState
	metrics     domain.Metrics
	task        *repeatingTask
	inflight    int
	debouncers  map[FeedID]*debouncer
}

// New crea un Controller en estado Idle. bots o logs en nil desactivan ese
// feed; health en nil omite el sondeo de conectividad.
func New(cfg Config, auth Authenticator, bots ports.BotSource, logs ports.LogSource, health ports.HealthChecker, r ports.Renderer, opts ...Option) *Controller {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.LogsLimit <= 0 {
		cfg.LogsLimit = defaultLogsLimit
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = defaultDebounce
	}

	c := &Controller{
		cfg:         cfg,
		auth:        auth,
		bots:        bots,
		logs:        logs,
		health:      health,
		render:      r,
		newTicker:   NewStdTicker,
		now:         time.Now,
		baseCtx:     context.Background(),
		autoRefresh: cfg.AutoRefresh,
		feeds:       make(map[FeedID]*feed),
		metrics:     domain.ComputeMetrics(nil),
		debouncers:  make(map[FeedID]*debouncer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.conn == nil {
		c.conn = domain.NewConnectionStatus()
	}

	if bots != nil {
		c.feeds[FeedBots] = &feed{id: FeedBots}
	}
	if logs != nil {
		c.feeds[FeedLogs] = &feed{id: FeedLogs}
	}
	for id := range c.feeds {
		c.debouncers[id] = newDebouncer(cfg.Debounce, func() { c.ApplyFilters(id) })
	}
	return c
}

// Init verifica la sesión, sondea la conectividad, carga todos los feeds y
// arma el timer si el auto-refresh está activo. Solo se puede llamar una vez.
// ctx es también el contexto de los refresh del timer.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	if c.initialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initialized = true
	c.baseCtx = ctx
	c.mu.Unlock()

	if !c.auth.RequireAuth(ctx) {
		return ErrNotAuthenticated
	}

	c.probe(ctx)
	c.LoadAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	// con la sesión vencida en la primera carga no se arma nada
	if c.autoRefresh && !c.authExpired {
		c.arm()
	}
	slog.Info("dashboard initialized", "feeds", len(c.feeds), "auto_refresh", c.autoRefresh, "interval", c.cfg.RefreshInterval)
	return nil
}

// probe sondea /health una vez y actualiza el indicador de conexión.
func (c *Controller) probe(ctx context.Context) {
	if c.health == nil {
		return
	}
	rtt, err := c.health.Ping(ctx)
	at := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	if err != nil {
		slog.Warn("backend health probe failed", "err", err)
		c.conn.MarkDown(at, err)
	} else {
		slog.Debug("backend health probe ok", "rtt", rtt)
		c.conn.MarkUp(at)
	}
	c.render.RenderConnection(c.conn.Snapshot())
}

// LoadAll carga todos los feeds registrados en paralelo y vuelve cuando
// terminaron todos. Los feeds son independientes: el fallo de uno no
// cancela al otro.
func (c *Controller) LoadAll(ctx context.Context) {
	var g errgroup.Group
	for _, id := range feedOrder {
		c.mu.Lock()
		_, ok := c.feeds[id]
		c.mu.Unlock()
		if !ok {
			continue
		}
		g.Go(func() error {
			c.LoadFeed(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
}

// Refresh es el refresh manual: LoadAll más una confirmación si todo cargó.
func (c *Controller) Refresh(ctx context.Context) {
	c.LoadAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.authExpired {
		return
	}
	if c.conn.Snapshot().Connected {
		c.render.Notify("data refreshed", ports.LevelSuccess)
	}
}

// LoadFeed hace un fetch del feed y reemplaza su colección. Los errores se
// absorben: con datos previos se muestra un warning y se conservan; sin
// datos previos el feed pasa a Empty. Nunca devuelve error.
func (c *Controller) LoadFeed(ctx context.Context, id FeedID) {
	c.mu.Lock()
	f, ok := c.feeds[id]
	if !ok || c.destroyed || c.authExpired {
		c.mu.Unlock()
		return
	}
	f.issued++
	seq := f.issued
	f.state = StateLoading
	c.beginLoading()
	botID, limit := c.cfg.BotID, c.cfg.LogsLimit
	c.mu.Unlock()

	var (
		bots []domain.Bot
		logs []domain.DecisionLog
		err  error
	)
	switch id {
	case FeedBots:
		bots, err = c.bots.ListBots(ctx)
	case FeedLogs:
		logs, err = c.logs.FetchLogs(ctx, botID, limit)
	}
	at := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLoading()

	if c.destroyed {
		slog.Debug("dropping result after destroy", "feed", id)
		return
	}
	if seq < f.applied {
		slog.Debug("dropping out-of-order response", "feed", id, "seq", seq, "applied", f.applied)
		return
	}
	f.applied = seq

	if err != nil {
		c.handleFailure(f, seq, err, at)
		return
	}

	c.markUp(at)
	switch id {
	case FeedBots:
		f.bots = bots
		c.metrics = domain.ComputeMetrics(bots)
	case FeedLogs:
		f.logs = logs
	}
	f.loaded = true
	if seq == f.issued {
		f.state = StateReady
	}
	c.renderFeed(f)
	slog.Debug("feed loaded", "feed", id, "items", f.size())
}

func (c *Controller) handleFailure(f *feed, seq uint64, err error, at time.Time) {
	if domain.IsAuthExpired(err) {
		c.settle(f, seq)
		if !f.loaded {
			c.render.RenderEmpty(string(f.id))
		}
		if c.authExpired {
			return
		}
		c.authExpired = true
		c.disarm()
		slog.Warn("session expired, halting authenticated calls", "feed", f.id, "err", err)
		c.render.Notify("session expired, please log in again", ports.LevelError)
		return
	}

	c.markDown(at, err)
	c.settle(f, seq)
	if f.loaded {
		slog.Warn("feed refresh failed, keeping cached data", "feed", f.id, "err", err)
		c.render.Notify(fmt.Sprintf("could not refresh %s, showing cached data", f.id), ports.LevelWarning)
		return
	}
	slog.Warn("feed load failed", "feed", f.id, "err", err)
	c.render.RenderEmpty(string(f.id))
	c.render.Notify(fmt.Sprintf("could not load %s", f.id), ports.LevelWarning)
}

// settle deja el feed en Ready si tiene caché o en Empty si nunca cargó,
// salvo que haya un fetch más nuevo en vuelo.
func (c *Controller) settle(f *feed, seq uint64) {
	if seq != f.issued {
		return
	}
	if f.loaded {
		f.state = StateReady
	} else {
		f.state = StateEmpty
	}
}

func (c *Controller) markUp(at time.Time) {
	was := c.conn.Snapshot().Connected
	c.conn.MarkUp(at)
	if !was {
		c.render.RenderConnection(c.conn.Snapshot())
	}
}

func (c *Controller) markDown(at time.Time, err error) {
	c.conn.MarkDown(at, err)
	c.render.RenderConnection(c.conn.Snapshot())
}

func (c *Controller) beginLoading() {
	c.inflight++
	if c.inflight == 1 {
		c.render.SetLoading(true)
	}
}

func (c *Controller) endLoading() {
	c.inflight--
	if c.inflight == 0 {
		c.render.SetLoading(false)
	}
}

// ApplyFilters vuelve a filtrar la colección actual del feed y la muestra.
// No hace fetch y es idempotente.
func (c *Controller) ApplyFilters(id FeedID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.feeds[id]
	if !ok || c.destroyed || !f.loaded {
		return
	}
	if id == FeedBots {
		c.metrics = domain.ComputeMetrics(f.bots)
	}
	c.renderFeed(f)
}

// renderFeed filtra y manda al renderer. Se llama con c.mu tomado.
func (c *Controller) renderFeed(f *feed) {
	switch f.id {
	case FeedBots:
		c.render.RenderBots(domain.FilterBots(f.bots, c.filters.Bots), len(f.bots))
		c.render.RenderMetrics(c.metrics)
	case FeedLogs:
		c.render.RenderLogs(domain.FilterLogs(f.logs, c.filters.Logs), len(f.logs))
	}
}

// SetBotFilter cambia un campo del filtro de bots y programa ApplyFilters
// con debounce.
func (c *Controller) SetBotFilter(field, value string) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	if err := c.filters.Bots.Set(field, value); err != nil {
		c.mu.Unlock()
		return err
	}
	d := c.debouncers[FeedBots]
	c.mu.Unlock()

	if d != nil {
		d.Trigger()
	}
	return nil
}

// SetLogFilter cambia un campo del filtro de logs y programa ApplyFilters
// con debounce.
func (c *Controller) SetLogFilter(field, value string) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	if err := c.filters.Logs.Set(field, value); err != nil {
		c.mu.Unlock()
		return err
	}
	d := c.debouncers[FeedLogs]
	c.mu.Unlock()

	if d != nil {
		d.Trigger()
	}
	return nil
}

// Filters devuelve el FilterState actual.
func (c *Controller) Filters() domain.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// SelectBot cambia el bot cuyo historial muestra el feed de logs y lo recarga.
// id vacío vuelve a los logs de todos los bots.
func (c *Controller) SelectBot(ctx context.Context, id string) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.cfg.BotID = id
	c.mu.Unlock()

	c.LoadFeed(ctx, FeedLogs)
}

// SetAutoRefresh activa o desactiva el timer. Desactivar lo desarma en el
// momento; activar lo re-arma. Nunca queda más de un timer vivo.
func (c *Controller) SetAutoRefresh(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.autoRefresh = enabled
	c.disarm()
	if enabled && c.initialized && !c.authExpired {
		c.arm()
	}
	slog.Info("auto-refresh toggled", "enabled", enabled)
}

// SetRefreshInterval cambia el período del timer; si está armado lo re-arma.
func (c *Controller) SetRefreshInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.cfg.RefreshInterval = d
	if c.task != nil {
		c.disarm()
		c.arm()
	}
}

// arm instala el timer. Se llama con c.mu tomado y sin timer vivo.
func (c *Controller) arm() {
	c.disarm()
	c.task = startRepeating(c.newTicker(c.cfg.RefreshInterval), c.onTick)
}

// disarm desarma el timer vigente, si hay.
func (c *Controller) disarm() {
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
}

// onTick corre en la goroutine del timer. Los ticks de un handle que ya no
// es el vigente se ignoran.
func (c *Controller) onTick(t *repeatingTask) {
	c.mu.Lock()
	live := c.task == t && !c.destroyed && !c.authExpired
	ctx := c.baseCtx
	c.mu.Unlock()
	if !live {
		return
	}
	slog.Debug("auto-refresh tick")
	c.LoadAll(ctx)
}

// Destroy desarma el timer y los debouncers y deja todos los feeds en
// Stopped. Las demás operaciones pasan a ser no-ops. Idempotente.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.disarm()
	for _, d := range c.debouncers {
		d.Stop()
	}
	for _, f := range c.feeds {
		f.state = StateStopped
	}
	slog.Debug("dashboard destroyed")
}

// State devuelve el estado del feed. Un feed no registrado está siempre Idle.
func (c *Controller) State(id FeedID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.feeds[id]; ok {
		return f.state
	}
	return StateIdle
}

// AutoRefresh informa si el timer está armado.
func (c *Controller) AutoRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task != nil
}

// AuthExpired informa si el controller dejó de hacer llamadas por sesión vencida.
func (c *Controller) AuthExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authExpired
}

// Metrics devuelve los agregados de la última colección de bots.
func (c *Controller) Metrics() domain.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.metrics
	m.BySymbol = make(map[string]int, len(c.metrics.BySymbol))
	for k, v := range c.metrics.BySymbol {
		m.BySymbol[k] = v
	}
	return m
}

// VisibleBots devuelve los bots que se muestran con los filtros actuales.
func (c *Controller) VisibleBots() []domain.Bot {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.feeds[FeedBots]
	if !ok {
		return nil
	}
	return domain.FilterBots(f.bots, c.filters.Bots)
}

// VisibleLogs devuelve los logs que se muestran con los filtros actuales.
func (c *Controller) VisibleLogs() []domain.DecisionLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.feeds[FeedLogs]
	if !ok {
		return nil
	}
	return domain.FilterLogs(f.logs, c.filters.Logs)
}

// Connection devuelve el último estado de conectividad conocido.
func (c *Controller) Connection() domain.ConnectionSnapshot {
	return c.conn.Snapshot()
}

func (f *feed) size() int {
	if f.id == FeedBots {
		return len(f.bots)
	}
	return len(f.logs)
}
