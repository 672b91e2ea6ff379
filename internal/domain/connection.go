package domain

import (
	"sync"
	"time"
)

// ConnectionStatus es el último estado conocido de alcanzabilidad del backend.
// Una sola instancia por proceso, creada en main y pasada a los componentes.
// Nunca se persiste; gana la última escritura.
type ConnectionStatus struct {
	mu        sync.RWMutex
	connected bool
	lastCheck time.Time
	lastError string
}

// ConnectionSnapshot es una copia inmutable de ConnectionStatus.
type ConnectionSnapshot struct {
	Connected bool
	LastCheck time.Time
	LastError string // vacío si connected
}

// NewConnectionStatus crea el estado inicial: desconectado, nunca chequeado.
func NewConnectionStatus() *ConnectionStatus {
	return &ConnectionStatus{}
}

// MarkUp registra una llamada exitosa.
func (c *ConnectionStatus) MarkUp(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.lastCheck = at
	c.lastError = ""
}

// MarkDown registra un fallo con su causa.
func (c *ConnectionStatus) MarkDown(at time.Time, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.lastCheck = at
	c.lastError = msg
}

// Snapshot devuelve el estado actual.
func (c *ConnectionStatus) Snapshot() ConnectionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConnectionSnapshot{
		Connected: c.connected,
		LastCheck: c.lastCheck,
		LastError: c.lastError,
	}
}
