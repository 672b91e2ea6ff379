package storage

// sqlite.go: persistencia de la sesión en un archivo SQLite.
//
// Estrategia:
//   - Una tabla `kv` genérica: clave → valor. La sesión ocupa dos filas
//     (<namespace>_auth_token y <namespace>_user_email).
//   - Save escribe las dos filas en una transacción: nunca queda un token
//     con el email de otra sesión.
//   - Clear borra las dos filas juntas.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT     NOT NULL,
    updated_at DATETIME NOT NULL
);
`

const upsertKV = `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value      = excluded.value,
    updated_at = excluded.updated_at
`

// SQLiteStorage implementa ports.SessionStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db   *sql.DB
	keys keys
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
// path puede ser ":memory:" para tests.
func NewSQLiteStorage(path, namespace string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, keys: newKeys(namespace)}, nil
}

// Load devuelve la sesión persistida. Sin token → ok=false.
func (s *SQLiteStorage) Load(ctx context.Context) (domain.Session, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key IN (?, ?)`,
		s.keys.token, s.keys.email,
	)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("storage.Load: query: %w", err)
	}
	defer rows.Close()

	var sess domain.Session
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.Session{}, false, fmt.Errorf("storage.Load: scan row: %w", err)
		}
		switch k {
		case s.keys.token:
			sess.Token = v
		case s.keys.email:
			sess.Email = v
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Session{}, false, fmt.Errorf("storage.Load: %w", err)
	}
	return sess, sess.Active(), nil
}

// Save reemplaza token y email en una sola transacción.
func (s *SQLiteStorage) Save(ctx context.Context, sess domain.Session) error {
	if !sess.Active() {
		return errors.New("storage.Save: empty token")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Save: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, upsertKV, s.keys.token, sess.Token, now); err != nil {
		return fmt.Errorf("storage.Save: upsert token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertKV, s.keys.email, sess.Email, now); err != nil {
		return fmt.Errorf("storage.Save: upsert email: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Save: commit: %w", err)
	}
	return nil
}

// SaveToken reemplaza solo el token.
func (s *SQLiteStorage) SaveToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("storage.SaveToken: empty token")
	}
	if _, err := s.db.ExecContext(ctx, upsertKV, s.keys.token, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("storage.SaveToken: %w", err)
	}
	return nil
}

// Clear borra token y email juntos.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE key IN (?, ?)`, s.keys.token, s.keys.email,
	); err != nil {
		return fmt.Errorf("storage.Clear: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
