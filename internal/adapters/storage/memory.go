package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/alejandrodnm/botdash/internal/domain"
)

// MemoryStorage implementa ports.SessionStore en memoria. Se usa en tests y
// en modo -demo, donde no tiene sentido sobrevivir al proceso.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	keys   keys
}

// NewMemoryStorage crea un store vacío.
func NewMemoryStorage(namespace string) *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string), keys: newKeys(namespace)}
}

func (m *MemoryStorage) Load(_ context.Context) (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Session{Token: m.values[m.keys.token], Email: m.values[m.keys.email]}
	return s, s.Active(), nil
}

func (m *MemoryStorage) Save(_ context.Context, s domain.Session) error {
	if !s.Active() {
		return errors.New("storage.Save: empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[m.keys.token] = s.Token
	m.values[m.keys.email] = s.Email
	return nil
}

func (m *MemoryStorage) SaveToken(_ context.Context, token string) error {
	if token == "" {
		return errors.New("storage.SaveToken: empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[m.keys.token] = token
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, m.keys.token)
	delete(m.values, m.keys.email)
	return nil
}

func (m *MemoryStorage) Close() error { return nil }
