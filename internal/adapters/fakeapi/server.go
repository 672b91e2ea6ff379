// Package fakeapi es un backend de monitoreo en memoria con el mismo contrato
// HTTP que el real: auth JWT, /trading/* y /health. Lo usan los tests y el
// modo -demo del CLI.
package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Nombres de ruta para Count.
const (
	RouteLogin    = "login"
	RouteValidate = "validate"
	RouteRefresh  = "refresh"
	RouteList     = "list"
	RouteBot      = "bot"
	RouteBotLogs  = "bot_logs"
	RouteLogs     = "logs"
	RouteHealth   = "health"
)

const (
	defaultEmail    = "admin@crypgo.local"
	defaultPassword = "crypgo123"
	defaultSecret   = "botdash-fake-secret"
	defaultTokenTTL = 24 * time.Hour

	defaultBotLogsLimit = 50
	defaultLogsLimit    = 20

	msgInvalidToken = "Invalid or expired token"
)

var errInvalidToken = errors.New("invalid token")

// Options configura las credenciales y la firma de tokens.
type Options struct {
	Email    string
	Password string
	Secret   string
	TokenTTL time.Duration
}

// Claims es el payload de los tokens emitidos. Gen permite invalidar todos
// los tokens vivos con ExpireTokens.
type Claims struct {
	Email string `json:"email"`
	Gen   int    `json:"gen"`
	jwt.RegisteredClaims
}

// Server implementa http.Handler.
type Server struct {
	opts    Options
	pwHash  []byte
	router  *mux.Router
	started time.Time

	mu            sync.Mutex
	bots          []domain.Bot
	logs          []domain.DecisionLog
	gen           int
	failNext      int
	failStatus    int
	rejectRefresh bool
	healthy       bool
	delay         time.Duration
	counts        map[string]int
	requestIDs    []string
}

// New crea un Server vacío (sin bots ni logs).
func New(opts Options) *Server {
	if opts.Email == "" {
		opts.Email = defaultEmail
	}
	if opts.Password == "" {
		opts.Password = defaultPassword
	}
	if opts.Secret == "" {
		opts.Secret = defaultSecret
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}

	// Costo mínimo: el fake hashea en cada New y los tests crean muchos.
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.MinCost)
	if err != nil {
		slog.Error("fakeapi: hash password, every login will fail", "err", err)
	}

	s := &Server{
		opts:    opts,
		pwHash:  hash,
		started: time.Now(),
		healthy: true,
		counts:  make(map[string]int),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.countRoute)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name(RouteHealth)

	auth := r.PathPrefix("/api/v1/auth").Subrouter()
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	auth.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost).Name(RouteValidate)
	auth.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost).Name(RouteRefresh)

	trading := r.PathPrefix("/api/v1/trading").Subrouter()
	trading.Use(s.requireAuth, s.injectFailures)
	trading.HandleFunc("/list", s.handleList).Methods(http.MethodGet).Name(RouteList)
	trading.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet).Name(RouteLogs)
	trading.HandleFunc("/bot/{id}", s.handleBot).Methods(http.MethodGet).Name(RouteBot)
	trading.HandleFunc("/bot/{id}/logs", s.handleBotLogs).Methods(http.MethodGet).Name(RouteBotLogs)

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Credentials devuelve el email y password aceptados por /login.
func (s *Server) Credentials() (email, password string) {
	return s.opts.Email, s.opts.Password
}

// --- knobs de test ---

// SetBots reemplaza los bots servidos.
func (s *Server) SetBots(bots []domain.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots = append([]domain.Bot(nil), bots...)
}

// SetLogs reemplaza los logs de decisión servidos.
func (s *Server) SetLogs(logs []domain.DecisionLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append([]domain.DecisionLog(nil), logs...)
}

// FailNext hace que las próximas n requests a /trading/* (ya autenticadas)
// respondan con status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failStatus = status
}

// ExpireTokens invalida todos los tokens emitidos hasta ahora.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
}

// RejectRefresh hace que /refresh responda 401 aunque el token sea válido.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRefresh = reject
}

// SetHealthy controla si /health responde 200 o 503.
func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

// SetDelay agrega latencia a las respuestas de /trading/*.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Count devuelve cuántas requests recibió la ruta, autenticadas o no.
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

// RequestIDs devuelve los X-Request-ID recibidos en /trading/*, en orden.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// --- tokens ---

// IssueToken firma un token nuevo para email con la generación actual.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	now := time.Now()
	claims := &Claims{
		Email: email,
		Gen:   gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
}

func (s *Server) parseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(s.opts.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if claims.Gen != s.gen {
		return nil, fmt.Errorf("%w: revoked", errInvalidToken)
	}
	return claims, nil
}

// --- middleware ---

// countRoute cuenta cada request por nombre de ruta, incluidas las que
// después rechaza requireAuth.
func (s *Server) countRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			s.mu.Lock()
			s.counts[route.GetName()]++
			s.mu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if id := r.Header.Get("X-Request-ID"); id != "" {
			s.requestIDs = append(s.requestIDs, id)
		}
		s.mu.Unlock()

		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}
		if _, err := s.parseToken(parts[1]); err != nil {
			respondError(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delay := s.delay
		fail, status := s.failNext > 0, s.failStatus
		if fail {
			s.failNext--
		}
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			respondError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if in.Email == "" || in.Password == "" {
		respondError(w, http.StatusUnauthorized, "invalid credentials format")
		return
	}
	if in.Email != s.opts.Email || bcrypt.CompareHashAndPassword(s.pwHash, []byte(in.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.IssueToken(in.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token, "email": in.Email})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	claims, err := s.parseToken(in.Token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"email": claims.Email,
		"exp":   claims.ExpiresAt.Time,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	s.mu.Lock()
	reject := s.rejectRefresh
	s.mu.Unlock()
	if reject {
		respondError(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	// Como el backend real: solo se refrescan tokens todavía válidos.
	claims, err := s.parseToken(in.Token)
	if err != nil {
		// Un token revocado por ExpireTokens sí se puede cambiar si la firma
		// es buena: simula el access token vencido con sesión viva.
		claims, err = s.parseRevoked(in.Token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
	}

	token, err := s.IssueToken(claims.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// parseRevoked acepta tokens con firma válida de una generación anterior.
func (s *Server) parseRevoked(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()

	if !healthy {
		respondError(w, http.StatusServiceUnavailable, "unhealthy")
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   "crypgo-machine",
		Version:   "1.0.0",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

// botDTO es el formato de cable del backend (is_positioned en vez de positioned).
type botDTO struct {
	ID                     string           `json:"id"`
	Symbol                 string           `json:"symbol"`
	Status                 domain.BotStatus `json:"status"`
	IsPositioned           bool             `json:"is_positioned"`
	Strategy               domain.Strategy  `json:"strategy"`
	InitialCapital         domain.Amount    `json:"initial_capital"`
	TradeAmount            domain.Amount    `json:"trade_amount"`
	EntryPrice             *domain.Amount   `json:"entry_price,omitempty"`
	MinimumProfitThreshold domain.Amount    `json:"minimum_profit_threshold"`
	CreatedAt              time.Time        `json:"created_at"`
}

func toDTO(b domain.Bot) botDTO {
	return botDTO{
		ID:                     b.ID,
		Symbol:                 b.Symbol,
		Status:                 b.Status,
		IsPositioned:           b.Positioned,
		Strategy:               b.Strategy,
		InitialCapital:         b.InitialCapital,
		TradeAmount:            b.TradeAmount,
		EntryPrice:             b.EntryPrice,
		MinimumProfitThreshold: b.MinimumProfitThreshold,
		CreatedAt:              b.CreatedAt,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	bots := append([]domain.Bot(nil), s.bots...)
	s.mu.Unlock()

	if len(bots) == 0 {
		http.Error(w, "no trading bots found", http.StatusNotFound)
		return
	}
	out := make([]botDTO, 0, len(bots))
	for _, b := range bots {
		out = append(out, toDTO(b))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	bot, ok := s.findBot(id)
	if !ok {
		respondError(w, http.StatusNotFound, "trading bot not found")
		return
	}
	respondJSON(w, http.StatusOK, toDTO(bot))
}

func (s *Server) handleBotLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.findBot(id); !ok {
		respondError(w, http.StatusNotFound, "trading bot not found")
		return
	}
	limit := queryInt(r, "limit", defaultBotLogsLimit)

	matched := s.filterLogs(func(l domain.DecisionLog) bool { return l.BotID == id })
	respondJSON(w, http.StatusOK, page(matched, limit, 0))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	decision := strings.ToUpper(q.Get("decision"))
	symbol := strings.ToUpper(q.Get("symbol"))
	limit := queryInt(r, "limit", defaultLogsLimit)
	offset := queryInt(r, "offset", 0)

	matched := s.filterLogs(func(l domain.DecisionLog) bool {
		if decision != "" && string(l.Decision) != decision {
			return false
		}
		if symbol != "" && l.Symbol != symbol {
			return false
		}
		return true
	})
	respondJSON(w, http.StatusOK, page(matched, limit, offset))
}

func (s *Server) findBot(id string) (domain.Bot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bots {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Bot{}, false
}

// filterLogs devuelve los logs que cumplen keep, del más nuevo al más viejo.
func (s *Server) filterLogs(keep func(domain.DecisionLog) bool) []domain.DecisionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DecisionLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if keep(s.logs[i]) {
			out = append(out, s.logs[i])
		}
	}
	return out
}

func page(logs []domain.DecisionLog, limit, offset int) domain.DecisionLogPage {
	total := len(logs)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return domain.DecisionLogPage{Logs: logs[offset:end], Total: total}
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("fakeapi: encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
