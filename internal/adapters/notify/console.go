package notify

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Console implementa ports.Renderer escribiendo tablas a un io.Writer.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	now     func() time.Time
	loading bool
}

// NewConsole crea un renderer que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un renderer para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, now: time.Now}
}

// RenderBots imprime la tabla de bots visibles.
func (c *Console) RenderBots(bots []domain.Bot, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[%s] bots: %d of %d\n", c.stamp(), len(bots), total)
	if len(bots) == 0 {
		fmt.Fprintln(c.out, "  (no bots match the current filters)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Symbol", "Status", "Pos", "Strategy", "Capital", "Trade", "Entry", "Min profit", "Created")
	for _, b := range bots {
		entry := "-"
		if b.EntryPrice != nil {
			entry = FormatBRL(b.EntryPrice.Decimal)
		}
		table.Append(
			b.ShortID(),
			b.Symbol,
			b.Status.Label(),
			yesNo(b.Positioned),
			b.Strategy.Label(),
			FormatBRL(b.InitialCapital.Decimal),
			FormatBRL(b.TradeAmount.Decimal),
			entry,
			b.MinimumProfitThreshold.StringFixed(2)+"%",
			formatTimestamp(b.CreatedAt),
		)
	}
	table.Render()
}

// RenderMetrics imprime la línea de agregados.
func (c *Console) RenderMetrics(m domain.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "  total: %d | active: %d | positioned: %d | capital: %s\n",
		m.Total, m.Active, m.Positioned, FormatBRL(m.TotalCapital))
	if len(m.BySymbol) == 0 {
		return
	}

	symbols := make([]string, 0, len(m.BySymbol))
	for s := range m.BySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	parts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		parts = append(parts, fmt.Sprintf("%s:%d", s, m.BySymbol[s]))
	}
	fmt.Fprintf(c.out, "  by symbol: %s\n", strings.Join(parts, " "))
}

// RenderLogs imprime la tabla de logs de decisión visibles.
func (c *Console) RenderLogs(logs []domain.DecisionLog, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[%s] decision logs: %d of %d\n", c.stamp(), len(logs), total)
	if len(logs) == 0 {
		fmt.Fprintln(c.out, "  (no logs match the current filters)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Symbol", "Decision", "Price", "Entry", "Profit", "Strategy")
	for _, l := range logs {
		entry, profit := "-", "-"
		if l.EntryPrice != nil {
			entry = FormatBRL(l.EntryPrice.Decimal)
		}
		if l.ProfitPercentage != nil {
			profit = formatSignedPct(l.ProfitPercentage.Decimal)
		}
		table.Append(
			formatTimestamp(l.Timestamp),
			l.Symbol,
			string(l.Decision),
			FormatBRL(l.CurrentPrice.Decimal),
			entry,
			profit,
			l.StrategyName,
		)
	}
	table.Render()
}

// RenderEmpty imprime el estado vacío de un feed que nunca cargó.
func (c *Console) RenderEmpty(feed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\n[%s] %s: no data available (backend unreachable?)\n", c.stamp(), feed)
}

// RenderConnection imprime el indicador de conexión.
func (c *Console) RenderConnection(s domain.ConnectionSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Connected {
		fmt.Fprintf(c.out, "[%s] ● connected\n", c.stamp())
		return
	}
	if s.LastError == "" {
		fmt.Fprintf(c.out, "[%s] ○ disconnected\n", c.stamp())
		return
	}
	fmt.Fprintf(c.out, "[%s] ○ disconnected: %s\n", c.stamp(), s.LastError)
}

// SetLoading imprime el indicador solo en las transiciones.
func (c *Console) SetLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if loading == c.loading {
		return
	}
	c.loading = loading
	if loading {
		fmt.Fprintf(c.out, "[%s] loading...\n", c.stamp())
	}
}

// Notify imprime un mensaje transitorio con su nivel.
func (c *Console) Notify(message string, level ports.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] [%s] %s\n", c.stamp(), strings.ToUpper(string(level)), message)
}

func (c *Console) stamp() string {
	return c.now().Format("15:04:05")
}

// FormatBRL formatea d como moneda brasileña: "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, sb.String(), frac)
}

func formatSignedPct(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
