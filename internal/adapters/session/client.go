package session

// client.go: ciclo de vida del token del dashboard.
//
// Toda llamada autenticada pasa por Do, que aplica una única política:
//   - sin token → ErrNoToken, no sale ninguna request
//   - 401 → exactamente un refresh; si sale bien, exactamente un reintento
//     con el token nuevo (su resultado se devuelve tal cual, sea cual sea)
//   - refresh fallido → logout + ErrAuthExpired
// Nunca hay loops de reintento.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
	"github.com/google/uuid"
)

const (
	defaultAuthBase        = "http://localhost:8080/api/v1/auth"
	defaultRefreshInterval = 23 * time.Hour // los tokens expiran a las 24h
	defaultTimeout         = 10 * time.Second

	msgAuthFailed = "authentication failed"
)

// Config controla los endpoints y tiempos del cliente de sesión.
type Config struct {
	AuthBase        string        // base de /login, /validate, /refresh
	RefreshInterval time.Duration // cadencia de SetupAutoRefresh
	Timeout         time.Duration // timeout por request HTTP
}

// Option modifica el Client en construcción.
type Option func(*Client)

// WithHTTPClient reemplaza el *http.Client (tests, transports custom).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithOnLogout registra el efecto de "volver al login" que dispara Logout.
func WithOnLogout(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

// Client es el SessionClient: login, logout, validación, refresh y la
// política de reintento-una-vez de las llamadas autenticadas.
type Client struct {
	cfg      Config
	http     *http.Client
	store    ports.SessionStore
	onLogout func()

	// refreshMu serializa los refresh concurrentes del proceso.
	refreshMu sync.Mutex
}

// NewClient crea un Client sobre el store dado.
func NewClient(cfg Config, store ports.SessionStore, opts ...Option) *Client {
	if cfg.AuthBase == "" {
		cfg.AuthBase = defaultAuthBase
	}
	cfg.AuthBase = strings.TrimRight(cfg.AuthBase, "/")
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		store:    store,
		onLogout: func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Login envía las credenciales y, si el backend las acepta, persiste la nueva
// sesión sobreescribiendo la anterior. Los fallos son *domain.AuthError.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	resp, err := c.postJSON(ctx, "/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return domain.Session{}, &domain.AuthError{
			Message: msgAuthFailed,
			Err:     &domain.TransportError{Op: "session.Login", Err: err},
		}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		msg := readErrorMessage(resp.Body)
		if msg == "" {
			msg = msgAuthFailed
		}
		return domain.Session{}, &domain.AuthError{
			Message: msg,
			Err:     &domain.HTTPError{Status: resp.StatusCode, Message: msg},
		}
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Session{}, &domain.AuthError{
			Message: msgAuthFailed,
			Err:     &domain.ValidationError{Op: "session.Login", Err: err},
		}
	}
	if out.Token == "" {
		return domain.Session{}, &domain.AuthError{
			Message: msgAuthFailed,
			Err:     &domain.ValidationError{Op: "session.Login", Err: fmt.Errorf("missing token")},
		}
	}
	if out.Email == "" {
		out.Email = email
	}

	sess := domain.Session{Token: out.Token, Email: out.Email}
	if err := c.store.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("session.Login: persist: %w", err)
	}

	slog.Info("login successful", "email", sess.Email)
	return sess, nil
}

// Logout borra la sesión persistida y dispara la navegación al login.
// Es idempotente.
func (c *Client) Logout(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		slog.Warn("failed to clear session", "err", err)
	}
	c.onLogout()
}

// Current devuelve la sesión persistida.
func (c *Client) Current(ctx context.Context) (domain.Session, bool) {
	s, ok, err := c.store.Load(ctx)
	if err != nil {
		slog.Warn("failed to load session", "err", err)
		return domain.Session{}, false
	}
	return s, ok
}

// IsAuthenticated devuelve true sii hay un token persistido.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, ok := c.Current(ctx)
	return ok
}

// UserEmail devuelve el email de la sesión actual, o "" si no hay sesión.
func (c *Client) UserEmail(ctx context.Context) string {
	s, _ := c.Current(ctx)
	return s.Email
}

// RequireAuth devuelve false y dispara la navegación al login si no hay sesión.
func (c *Client) RequireAuth(ctx context.Context) bool {
	if c.IsAuthenticated(ctx) {
		return true
	}
	c.onLogout()
	return false
}

// ValidateToken consulta /validate. Cualquier resultado inválido fuerza logout
// según domain.DecideValidation.
func (c *Client) ValidateToken(ctx context.Context) bool {
	outcome := domain.ValidationNoToken
	if s, ok := c.Current(ctx); ok {
		outcome = c.validate(ctx, s.Token)
	}

	valid, action := domain.DecideValidation(outcome)
	if action == domain.SessionLogout {
		slog.Warn("token validation failed, logging out", "outcome", outcome.String())
		c.Logout(ctx)
	}
	return valid
}

func (c *Client) validate(ctx context.Context, token string) domain.ValidationOutcome {
	resp, err := c.postJSON(ctx, "/validate", tokenRequest{Token: token})
	if err != nil {
		slog.Debug("token validation transport error", "err", err)
		return domain.ValidationTransportError
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return domain.ValidationHTTPError
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ValidationMalformed
	}
	if !out.Valid {
		return domain.ValidationRejected
	}
	return domain.ValidationValid
}

// RefreshToken cambia el token actual por uno nuevo vía /refresh, conservando
// el email. Cualquier fallo fuerza logout. Cada llamada hace como mucho una request.
func (c *Client) RefreshToken(ctx context.Context) bool {
	return c.refresh(ctx, "")
}

// refresh hace el refresh bajo refreshMu. Si stale no es vacío y el token
// persistido ya no es stale, otro caller refrescó mientras esperábamos y se
// reutiliza su resultado sin request.
func (c *Client) refresh(ctx context.Context, stale string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	s, ok := c.Current(ctx)
	if !ok {
		// desde Do, sin sesión quiere decir que otro caller ya hizo logout
		if stale == "" {
			slog.Warn("token refresh without session, logging out")
			c.Logout(ctx)
		}
		return false
	}
	if stale != "" && s.Token != stale {
		slog.Debug("token already refreshed by a concurrent request")
		return true
	}

	token, err := c.requestRefresh(ctx, s.Token)
	if err != nil {
		slog.Warn("token refresh failed, logging out", "err", err)
		c.Logout(ctx)
		return false
	}

	if err := c.store.SaveToken(ctx, token); err != nil {
		slog.Warn("failed to persist refreshed token, logging out", "err", err)
		c.Logout(ctx)
		return false
	}
	slog.Debug("token refreshed", "email", s.Email)
	return true
}

func (c *Client) requestRefresh(ctx context.Context, token string) (string, error) {
	resp, err := c.postJSON(ctx, "/refresh", tokenRequest{Token: token})
	if err != nil {
		return "", &domain.TransportError{Op: "session.RefreshToken", Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", &domain.HTTPError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.ValidationError{Op: "session.RefreshToken", Err: err}
	}
	if out.Token == "" {
		return "", &domain.ValidationError{Op: "session.RefreshToken", Err: fmt.Errorf("missing token")}
	}
	return out.Token, nil
}

// Do ejecuta una request autenticada (authenticatedRequest). body se serializa
// como JSON si no es nil. El caller cierra resp.Body.
//
// Errores: domain.ErrNoToken sin sesión, ErrAuthExpired si el refresh tras un
// 401 falla, *domain.TransportError si la red falla. Cualquier otra respuesta
// (incluido un 401 en el reintento) se devuelve sin interpretar.
func (c *Client) Do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	sess, ok := c.Current(ctx)
	if !ok {
		return nil, domain.ErrNoToken
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("session.Do: marshal body: %w", err)
		}
		payload = b
	}

	requestID := uuid.NewString()
	resp, err := c.send(ctx, method, url, payload, sess.Token, requestID)
	if err != nil {
		return nil, &domain.TransportError{Op: "session.Do", Err: err}
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	slog.Debug("request unauthorized, refreshing token", "url", url, "request_id", requestID)
	if !c.refresh(ctx, sess.Token) {
		return nil, fmt.Errorf("session.Do: %w", domain.ErrAuthExpired)
	}

	sess, ok = c.Current(ctx)
	if !ok {
		return nil, fmt.Errorf("session.Do: %w", domain.ErrAuthExpired)
	}

	resp, err = c.send(ctx, method, url, payload, sess.Token, requestID)
	if err != nil {
		return nil, &domain.TransportError{Op: "session.Do", Err: err}
	}
	return resp, nil
}

// send arma y ejecuta una request con los headers de autenticación.
func (c *Client) send(ctx context.Context, method, url string, payload []byte, token, requestID string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)
	return c.http.Do(req)
}

// postJSON hace un POST sin autenticación a un endpoint de AuthBase.
func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthBase+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// readErrorMessage extrae {"error": "..."} del body, o "" si no hay.
func readErrorMessage(r io.Reader) string {
	var e errorResponse
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&e); err != nil {
		return ""
	}
	return strings.TrimSpace(e.Error)
}

// drain descarta el body para que la conexión pueda reutilizarse.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
