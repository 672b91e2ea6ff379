package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultAPIPath = "/api/v1"

	// El backend no documenta límites; 10/s con burst 5 alcanza de sobra
	// para un dashboard que refresca cada 30s.
	defaultRatePerSec = 10
	defaultBurst      = 5

	defaultTimeout = 10 * time.Second
)

// Doer ejecuta requests autenticadas. *session.Client lo implementa.
type Doer interface {
	Do(ctx context.Context, method, url string, body any) (*http.Response, error)
}

// Config controla los endpoints del backend.
type Config struct {
	BaseURL    string  // host del backend, sin path (p.ej. http://localhost:8080)
	APIPath    string  // prefijo de la API de trading
	RatePerSec float64 // requests/s permitidas hacia el backend
	Timeout    time.Duration
}

// Client es el cliente tipado de la API de trading. Las rutas /trading/*
// pasan por el Doer (token + retry en 401); /health no está autenticado.
type Client struct {
	cfg     Config
	doer    Doer
	http    *http.Client
	limiter *rate.Limiter
}

// Option modifica el Client en construcción.
type Option func(*Client)

// WithHTTPClient reemplaza el *http.Client usado para /health.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient crea un Client. Campos vacíos de cfg toman los defaults.
func NewClient(cfg Config, doer Doer, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIPath == "" {
		cfg.APIPath = defaultAPIPath
	}
	cfg.APIPath = "/" + strings.Trim(cfg.APIPath, "/")
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		cfg:     cfg,
		doer:    doer,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIBase devuelve la base de las rutas de trading.
func (c *Client) APIBase() string {
	return c.cfg.BaseURL + c.cfg.APIPath
}

// ListBots devuelve todos los bots. El backend responde 404 cuando no hay
// ninguno; eso es una lista vacía, no un error.
func (c *Client) ListBots(ctx context.Context) ([]domain.Bot, error) {
	var bots []domain.Bot
	err := c.getJSON(ctx, "backend.ListBots", c.APIBase()+"/trading/list", &bots)
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return []domain.Bot{}, nil
	}
	if err != nil {
		return nil, err
	}
	if bots == nil {
		bots = []domain.Bot{}
	}
	return bots, nil
}

// GetBot devuelve un bot por ID.
func (c *Client) GetBot(ctx context.Context, id string) (domain.Bot, error) {
	var bot domain.Bot
	u := c.APIBase() + "/trading/bot/" + url.PathEscape(id)
	if err := c.getJSON(ctx, "backend.GetBot", u, &bot); err != nil {
		return domain.Bot{}, err
	}
	return bot, nil
}

// GetBotLogs devuelve los últimos limit logs de un bot.
func (c *Client) GetBotLogs(ctx context.Context, id string, limit int) (domain.DecisionLogPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.APIBase() + "/trading/bot/" + url.PathEscape(id) + "/logs"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	var page domain.DecisionLogPage
	if err := c.getJSON(ctx, "backend.GetBotLogs", u, &page); err != nil {
		return domain.DecisionLogPage{}, err
	}
	return normalizePage(page), nil
}

// LogQuery filtra GET /trading/logs. Los campos vacíos no se envían.
type LogQuery struct {
	Decision domain.Decision
	Symbol   string
	Limit    int
	Offset   int
}

func (q LogQuery) values() url.Values {
	v := url.Values{}
	if q.Decision != "" {
		v.Set("decision", string(q.Decision))
	}
	if q.Symbol != "" {
		v.Set("symbol", q.Symbol)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// ListLogs devuelve logs de todos los bots.
func (c *Client) ListLogs(ctx context.Context, q LogQuery) (domain.DecisionLogPage, error) {
	u := c.APIBase() + "/trading/logs"
	if enc := q.values().Encode(); enc != "" {
		u += "?" + enc
	}

	var page domain.DecisionLogPage
	if err := c.getJSON(ctx, "backend.ListLogs", u, &page); err != nil {
		return domain.DecisionLogPage{}, err
	}
	return normalizePage(page), nil
}

// FetchLogs implementa ports.LogSource: con botID usa los logs del bot,
// sin botID los logs globales.
func (c *Client) FetchLogs(ctx context.Context, botID string, limit int) ([]domain.DecisionLog, error) {
	var (
		page domain.DecisionLogPage
		err  error
	)
	if botID != "" {
		page, err = c.GetBotLogs(ctx, botID, limit)
	} else {
		page, err = c.ListLogs(ctx, LogQuery{Limit: limit})
	}
	if err != nil {
		return nil, err
	}
	return page.Logs, nil
}

// HealthStatus es el body de GET /health.
type HealthStatus struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// Health consulta GET /health sin autenticación. Un 200 con body vacío o
// ilegible sigue contando como sano.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	resp, err := c.health(ctx)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		slog.Debug("health body not decodable", "err", err)
		hs.Status = "healthy"
	}
	return hs, nil
}

// Ping implementa ports.HealthChecker: mide el round-trip de GET /health.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	resp, err := c.health(ctx)
	if err != nil {
		return 0, err
	}
	drain(resp)
	return time.Since(start), nil
}

func (c *Client) health(ctx context.Context) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("backend.Health: rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("backend.Health: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "backend.Health", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		resp.Body.Close()
		return nil, &domain.HTTPError{Status: resp.StatusCode, Message: msg}
	}
	return resp, nil
}

// getJSON hace un GET autenticado y decodifica el body en out.
// Los errores del Doer (ErrAuthExpired, TransportError) salen tal cual.
func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	resp, err := c.doer.Do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.HTTPError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ValidationError{Op: op, Err: err}
	}
	return nil
}

func normalizePage(p domain.DecisionLogPage) domain.DecisionLogPage {
	if p.Logs == nil {
		p.Logs = []domain.DecisionLog{}
	}
	if p.Total < len(p.Logs) {
		p.Total = len(p.Logs)
	}
	return p
}

// readErrorMessage extrae el mensaje de error del body. El backend usa tanto
// {"error": "..."} como texto plano de http.Error.
func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(b) == 0 {
		return ""
	}
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return strings.TrimSpace(e.Error)
	}
	return strings.TrimSpace(string(b))
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
