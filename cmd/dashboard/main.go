package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alejandrodnm/botdash/config"
	"github.com/alejandrodnm/botdash/internal/adapters/backend"
	"github.com/alejandrodnm/botdash/internal/adapters/notify"
	"github.com/alejandrodnm/botdash/internal/adapters/session"
	"github.com/alejandrodnm/botdash/internal/dashboard"
	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "load every feed once, print and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json|tint (overrides config)")
	demo := flag.Bool("demo", false, "serve an in-process demo backend with seeded bots")
	logout := flag.Bool("logout", false, "clear the persisted session and exit")
	noAuto := flag.Bool("no-auto-refresh", false, "start with the auto-refresh timer disarmed")
	botID := flag.String("bot", "", "show decision logs of this bot only")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *botID != "" {
		cfg.Dashboard.BotID = *botID
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *demo {
		stopDemo, err := startDemo(cfg)
		if err != nil {
			slog.Error("failed to start demo backend", "err", err)
			os.Exit(1)
		}
		defer stopDemo()
	}

	slog.Info("botdash starting",
		"config", *configPath,
		"api", cfg.API.BaseURL,
		"storage", cfg.Storage.Backend,
		"interval", cfg.RefreshInterval(),
		"once", *once,
		"demo", *demo,
	)

	store, err := openStore(ctx, cfg.Storage, cfg.Auth.Namespace)
	if err != nil {
		slog.Error("failed to open session storage", "err", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer store.Close()

	// Hasta que el dashboard arranca, un logout es parte del login (token
	// inválido) y no debe cortar el proceso.
	var running atomic.Bool
	sess := session.NewClient(session.Config{
		AuthBase:        cfg.AuthBase(),
		RefreshInterval: cfg.TokenRefreshInterval(),
		Timeout:         cfg.Timeout(),
	}, store, session.WithOnLogout(func() {
		fmt.Fprintln(os.Stderr, "session ended, run botdash again to log in")
		if running.Load() {
			cancel()
		}
	}))

	if *logout {
		sess.Logout(ctx)
		slog.Info("session cleared")
		return
	}

	if err := ensureSession(ctx, sess, cfg.Auth); err != nil {
		slog.Error("login failed", "err", err)
		os.Exit(1)
	}
	cur, _ := sess.Current(ctx)
	ttl, _ := tokenTTL(cur.Token, time.Now())
	slog.Info("authenticated", "email", sess.UserEmail(ctx), "expires_in", ttl)

	stopRefresh := sess.SetupAutoRefresh(ctx)
	defer stopRefresh()

	api := backend.NewClient(backend.Config{
		BaseURL:    cfg.API.BaseURL,
		APIPath:    cfg.API.APIPath,
		RatePerSec: cfg.API.RatePerSec,
		Timeout:    cfg.Timeout(),
	}, sess)

	var renderer ports.Renderer = notify.NewConsole()
	if cfg.Alerts.TelegramToken != "" {
		bot, err := notify.NewTelegramBot(cfg.Alerts.TelegramToken)
		if err != nil {
			slog.Warn("telegram alerts disabled", "err", err)
		} else {
			alerts := notify.NewTelegram(renderer, bot, cfg.Alerts.TelegramChatID, ports.Level(cfg.Alerts.Level))
			defer alerts.Close()
			renderer = alerts
		}
	}

	ctrl := dashboard.New(dashboard.Config{
		RefreshInterval: cfg.RefreshInterval(),
		AutoRefresh:     cfg.AutoRefresh() && !*noAuto && !*once,
		LogsLimit:       cfg.Dashboard.LogsLimit,
		Debounce:        cfg.Debounce(),
		BotID:           cfg.Dashboard.BotID,
	}, sess, api, api, api, renderer, dashboard.WithConnectionStatus(domain.NewConnectionStatus()))
	defer ctrl.Destroy()

	running.Store(true)
	if err := ctrl.Init(ctx); err != nil {
		slog.Error("dashboard init failed", "err", err)
		os.Exit(1)
	}

	if *once {
		return
	}

	cmds := newCommandRunner(ctrl, sess, api, os.Stdout)
	go func() {
		// EOF en stdin no termina el proceso: el polling sigue hasta la señal.
		err := cmds.Run(ctx, os.Stdin)
		switch {
		case errors.Is(err, errQuit):
			cancel()
		case err != nil:
			slog.Warn("command loop stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("botdash stopped cleanly")
}
