package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alejandrodnm/botdash/internal/adapters/backend"
	"github.com/alejandrodnm/botdash/internal/adapters/session"
	"github.com/alejandrodnm/botdash/internal/dashboard"
	"github.com/alejandrodnm/botdash/internal/domain"
)

// errQuit lo devuelve Execute cuando el usuario pide salir.
var errQuit = errors.New("quit")

const helpText = `commands:
  r | refresh [bots|logs]  reload every feed now, or only one
  f <field> [value]        filter bots by symbol|status|strategy (no value clears)
  lf <field> [value]       filter logs by decision|symbol (no value clears)
  bot [id]                 show logs of one bot (no id = all bots)
  auto on|off              arm or disarm the auto-refresh timer
  every <duration>         change the auto-refresh period (e.g. 15s, 1m)
  filters                  show the active filters
  whoami                   show the logged-in user and token expiry
  health                   query the backend health endpoint
  logout                   clear the session and exit
  q | quit                 exit`

// controls es lo que la consola necesita del dashboard.
type controls interface {
	Refresh(ctx context.Context)
	LoadFeed(ctx context.Context, id dashboard.FeedID)
	SetBotFilter(field, value string) error
	SetLogFilter(field, value string) error
	SelectBot(ctx context.Context, id string)
	SetAutoRefresh(enabled bool)
	SetRefreshInterval(d time.Duration)
	AutoRefresh() bool
	Filters() domain.FilterState
}

type sessionInfo interface {
	Current(ctx context.Context) (domain.Session, bool)
	Logout(ctx context.Context)
}

type healthChecker interface {
	Health(ctx context.Context) (backend.HealthStatus, error)
}

// commandRunner traduce líneas de stdin en eventos del dashboard.
type commandRunner struct {
	ctrl   controls
	sess   sessionInfo
	health healthChecker
	out    io.Writer
	now    func() time.Time
}

func newCommandRunner(ctrl controls, sess sessionInfo, health healthChecker, out io.Writer) *commandRunner {
	return &commandRunner{ctrl: ctrl, sess: sess, health: health, out: out, now: time.Now}
}

// Run lee comandos hasta EOF, un quit o la cancelación de ctx. Los errores
// de un comando se muestran y el loop sigue.
func (c *commandRunner) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := c.Execute(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return err
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
	return sc.Err()
}

// Execute corre un comando.
func (c *commandRunner) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "r", "refresh":
		if len(args) == 0 {
			c.ctrl.Refresh(ctx)
			return nil
		}
		id, ok := dashboard.ParseFeedID(strings.ToLower(args[0]))
		if !ok {
			return fmt.Errorf("refresh: unknown feed %q (bots|logs)", args[0])
		}
		c.ctrl.LoadFeed(ctx, id)
	case "f", "filter":
		field, value, err := filterArgs(args)
		if err != nil {
			return err
		}
		// strategy es case-sensitive ("MovingAverage"); symbol y status van en mayúsculas
		if !strings.EqualFold(field, "strategy") {
			value = strings.ToUpper(value)
		}
		return c.ctrl.SetBotFilter(field, value)
	case "lf", "logfilter":
		field, value, err := filterArgs(args)
		if err != nil {
			return err
		}
		return c.ctrl.SetLogFilter(field, strings.ToUpper(value))
	case "bot":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		c.ctrl.SelectBot(ctx, id)
	case "auto":
		if len(args) != 1 {
			return errors.New("usage: auto on|off")
		}
		switch strings.ToLower(args[0]) {
		case "on":
			c.ctrl.SetAutoRefresh(true)
		case "off":
			c.ctrl.SetAutoRefresh(false)
		default:
			return fmt.Errorf("auto: expected on|off, got %q", args[0])
		}
		fmt.Fprintf(c.out, "auto-refresh: %s\n", onOff(c.ctrl.AutoRefresh()))
	case "every":
		if len(args) != 1 {
			return errors.New("usage: every <duration>")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("every: %w", err)
		}
		if d < time.Second {
			return fmt.Errorf("every: period must be at least 1s, got %s", d)
		}
		c.ctrl.SetRefreshInterval(d)
	case "filters":
		c.printFilters()
	case "whoami":
		s, ok := c.sess.Current(ctx)
		if !ok {
			fmt.Fprintln(c.out, "not logged in")
			return nil
		}
		fmt.Fprintf(c.out, "%s, %s\n", s.Email, describeToken(s.Token, c.now()))
	case "health":
		if c.health == nil {
			return errors.New("health: no backend configured")
		}
		hs, err := c.health.Health(ctx)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		fmt.Fprintf(c.out, "backend: status=%s service=%s version=%s uptime=%s\n",
			orAny(hs.Status), orAny(hs.Service), orAny(hs.Version), orAny(hs.Uptime))
	case "logout":
		c.sess.Logout(ctx)
		return errQuit
	case "q", "quit", "exit":
		return errQuit
	case "h", "help", "?":
		fmt.Fprintln(c.out, helpText)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (c *commandRunner) printFilters() {
	f := c.ctrl.Filters()
	fmt.Fprintf(c.out, "bots: symbol=%s status=%s strategy=%s\n",
		orAny(f.Bots.Symbol), orAny(string(f.Bots.Status)), orAny(string(f.Bots.Strategy)))
	fmt.Fprintf(c.out, "logs: decision=%s symbol=%s\n",
		orAny(string(f.Logs.Decision)), orAny(f.Logs.Symbol))
}

// tokenTTL lee la expiración del JWT sin verificarlo. false si el token no
// se puede decodificar o no tiene exp.
func tokenTTL(token string, now time.Time) (time.Duration, bool) {
	claims, err := session.DecodeClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return 0, false
	}
	return claims.ExpiresIn(now).Round(time.Second), true
}

func describeToken(token string, now time.Time) string {
	ttl, ok := tokenTTL(token, now)
	switch {
	case !ok:
		return "token expiry unknown"
	case ttl <= 0:
		return "token expired"
	default:
		return "token expires in " + ttl.String()
	}
}

func filterArgs(args []string) (field, value string, err error) {
	switch len(args) {
	case 1:
		return args[0], "", nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errors.New("usage: <field> [value]")
	}
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
