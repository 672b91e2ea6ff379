package notify_test

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/botdash/internal/adapters/notify"
	"github.com/alejandrodnm/botdash/internal/domain"
	"github.com/alejandrodnm/botdash/internal/ports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Renderer = (*notify.Telegram)(nil)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, msg.Text)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func TestTelegram_ForwardsByLevel(t *testing.T) {
	var out bytes.Buffer
	sender := &fakeSender{}
	tg := notify.NewTelegram(notify.NewConsoleWriter(&out), sender, 42, ports.LevelWarning)

	tg.Notify("data refreshed", ports.LevelSuccess)
	tg.Notify("could not refresh bots, showing cached data", ports.LevelWarning)
	tg.Notify("session expired, please log in again", ports.LevelError)
	tg.Close()

	assert.Equal(t, []string{
		"botdash [warning] could not refresh bots, showing cached data",
		"botdash [error] session expired, please log in again",
	}, sender.sent())
	// la consola recibe todo
	assert.Contains(t, out.String(), "data refreshed")
	assert.Contains(t, out.String(), "session expired")
}

func TestTelegram_ConnectionTransitions(t *testing.T) {
	sender := &fakeSender{}
	tg := notify.NewTelegram(notify.NewConsoleWriter(&bytes.Buffer{}), sender, 42, ports.LevelError)

	up := domain.ConnectionSnapshot{Connected: true, LastCheck: time.Now()}
	down := domain.ConnectionSnapshot{LastCheck: time.Now(), LastError: "dial tcp: connection refused"}

	tg.RenderConnection(up) // primer estado conectado: sin alerta
	tg.RenderConnection(up)
	tg.RenderConnection(down)
	tg.RenderConnection(down)
	tg.RenderConnection(up)
	tg.Close()

	assert.Equal(t, []string{
		"botdash: backend unreachable: dial tcp: connection refused",
		"botdash: backend reachable again",
	}, sender.sent())
}

func TestTelegram_FirstStateDownAlerts(t *testing.T) {
	sender := &fakeSender{}
	tg := notify.NewTelegram(notify.NewConsoleWriter(&bytes.Buffer{}), sender, 42, "")

	tg.RenderConnection(domain.ConnectionSnapshot{})
	tg.Close()

	assert.Equal(t, []string{"botdash: backend unreachable"}, sender.sent())
}

func TestTelegram_SendErrorsAreAbsorbed(t *testing.T) {
	sender := &fakeSender{err: errors.New("forbidden: bot was blocked by the user")}
	tg := notify.NewTelegram(notify.NewConsoleWriter(&bytes.Buffer{}), sender, 42, ports.LevelWarning)

	tg.Notify("could not load logs", ports.LevelWarning)
	tg.Close()
	tg.Close()

	// después de Close no se encola nada
	tg.Notify("late", ports.LevelError)
	assert.Len(t, sender.sent(), 1)
}

func TestTelegram_WithBotAPI(t *testing.T) {
	var (
		mu     sync.Mutex
		chats  []string
		texts  []string
		called []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		_ = r.ParseForm()
		mu.Lock()
		called = append(called, method)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "getMe":
			fmt.Fprint(w, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"dash","username":"botdash_bot"}}`)
		case "sendMessage":
			mu.Lock()
			chats = append(chats, r.PostForm.Get("chat_id"))
			texts = append(texts, r.PostForm.Get("text"))
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
		default:
			fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}))
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithClient("123:abc", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "botdash_bot", bot.Self.UserName)

	tg := notify.NewTelegram(notify.NewConsoleWriter(&bytes.Buffer{}), bot, 42, ports.LevelWarning)
	tg.Notify("could not load bots", ports.LevelWarning)
	tg.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"getMe", "sendMessage"}, called)
	assert.Equal(t, []string{"42"}, chats)
	assert.Equal(t, []string{"botdash [warning] could not load bots"}, texts)
}
