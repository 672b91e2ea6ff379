package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/botdash/config"
	"github.com/alejandrodnm/botdash/internal/adapters/fakeapi"
	"github.com/alejandrodnm/botdash/internal/adapters/session"
	"github.com/alejandrodnm/botdash/internal/adapters/storage"
	"github.com/alejandrodnm/botdash/internal/ports"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// setupLogger instala el logger por defecto. Escribe a stderr para no
// intercalarse con las tablas del dashboard en stdout.
func setupLogger(cfg config.LogConfig) {
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, cfg)))
}

func newLogHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "tint":
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(w),
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// openStore abre el SessionStore configurado.
func openStore(ctx context.Context, cfg config.StorageConfig, namespace string) (ports.SessionStore, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(namespace), nil
	case "redis":
		rs, err := storage.NewRedisStorage(ctx, cfg.RedisAddr, cfg.RedisDB, namespace)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case "sqlite", "":
		db, err := storage.NewSQLiteStorage(cfg.DSN, namespace)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("openStore: unknown backend %q", cfg.Backend)
	}
}

// startDemo levanta el backend de demo en un puerto local y apunta la
// configuración a él. La sesión del demo vive en memoria.
func startDemo(cfg *config.Config) (stop func(), err error) {
	fake := fakeapi.NewDemo(fakeapi.Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("startDemo: listen: %w", err)
	}

	srv := &http.Server{Handler: fake, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("demo backend stopped", "err", err)
		}
	}()

	cfg.API.BaseURL = "http://" + ln.Addr().String()
	cfg.Storage.Backend = "memory"
	cfg.Auth.Email, cfg.Auth.Password = fake.Credentials()
	slog.Info("demo backend listening", "url", cfg.API.BaseURL, "email", cfg.Auth.Email)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// ensureSession reutiliza la sesión persistida si el backend la acepta; si
// no, hace login con las credenciales del entorno o las pide por consola.
func ensureSession(ctx context.Context, sess *session.Client, auth config.AuthConfig) error {
	if sess.IsAuthenticated(ctx) && sess.ValidateToken(ctx) {
		return nil
	}

	email, password := auth.Email, auth.Password
	if email == "" || password == "" {
		var err error
		email, password, err = promptCredentials(os.Stdin, os.Stderr, email)
		if err != nil {
			return err
		}
	}

	if _, err := sess.Login(ctx, email, password); err != nil {
		return fmt.Errorf("ensureSession: %w", err)
	}
	return nil
}

// promptCredentials pide email y password. La password solo se lee sin eco
// cuando stdin es una terminal.
func promptCredentials(in *os.File, out io.Writer, email string) (string, string, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return "", "", errors.New("promptCredentials: no credentials (set BOTDASH_EMAIL and BOTDASH_PASSWORD)")
	}

	if email == "" {
		fmt.Fprint(out, "email: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("promptCredentials: read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(out, "password: ")
	pw, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", "", fmt.Errorf("promptCredentials: read password: %w", err)
	}
	return email, string(pw), nil
}
