package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const alertQueueSize = 32

// Sender es el subconjunto de *tgbotapi.BotAPI que usa Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram decora un Renderer y reenvía a un chat las notificaciones de
// nivel >= minLevel y los cambios de conectividad. El resto de la interfaz
// pasa directo al Renderer interno.
//
// El controller llama al Renderer con su lock tomado, así que los envíos
// van a una cola y los hace una goroutine. Con la cola llena se descartan.
type Telegram struct {
	ports.Renderer

	sender   Sender
	chatID   int64
	minLevel ports.Level

	mu        sync.Mutex
	connKnown bool
	connected bool
	closed    bool

	queue chan string
	done  chan struct{}
}

// NewTelegram arranca el worker de envíos. Close lo detiene.
func NewTelegram(next ports.Renderer, sender Sender, chatID int64, minLevel ports.Level) *Telegram {
	if minLevel == "" {
		minLevel = ports.LevelWarning
	}
	t := &Telegram{
		Renderer: next,
		sender:   sender,
		chatID:   chatID,
		minLevel: minLevel,
		queue:    make(chan string, alertQueueSize),
		done:     make(chan struct{}),
	}
	go t.loop()
	return t
}

// NewTelegramBot crea el cliente de la Bot API y verifica el token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegramBot: %w", err)
	}
	slog.Info("telegram alerts enabled", "bot", bot.Self.UserName)
	return bot, nil
}

func (t *Telegram) Notify(message string, level ports.Level) {
	t.Renderer.Notify(message, level)
	if levelRank(level) >= levelRank(t.minLevel) {
		t.enqueue(fmt.Sprintf("botdash [%s] %s", level, message))
	}
}

// RenderConnection avisa solo en las transiciones; el primer estado
// observado no genera alerta salvo que sea una caída.
func (t *Telegram) RenderConnection(s domain.ConnectionSnapshot) {
	t.Renderer.RenderConnection(s)

	t.mu.Lock()
	changed := !t.connKnown || t.connected != s.Connected
	first := !t.connKnown
	t.connKnown, t.connected = true, s.Connected
	t.mu.Unlock()

	switch {
	case !changed, first && s.Connected:
		return
	case s.Connected:
		t.enqueue("botdash: backend reachable again")
	case s.LastError != "":
		t.enqueue("botdash: backend unreachable: " + s.LastError)
	default:
		t.enqueue("botdash: backend unreachable")
	}
}

func (t *Telegram) enqueue(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- text:
	default:
		slog.Warn("telegram alert queue full, dropping", "text", text)
	}
}

func (t *Telegram) loop() {
	defer close(t.done)
	for text := range t.queue {
		if _, err := t.sender.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
			slog.Warn("telegram alert failed", "err", err)
		}
	}
}

// Close deja de aceptar alertas, envía las encoladas y espera al worker.
// Es idempotente.
func (t *Telegram) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()
	<-t.done
}

func levelRank(l ports.Level) int {
	switch l {
	case ports.LevelWarning:
		return 2
	case ports.LevelError:
		return 3
	case ports.LevelSuccess:
		return 1
	default:
		return 0
	}
}
