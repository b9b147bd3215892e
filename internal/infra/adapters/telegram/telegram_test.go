package telegram

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-phone-sales/internal/application"
	"telegram-phone-sales/internal/infra/worker"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type keyTranslator struct{}

func (keyTranslator) T(key string, _ ...interface{}) string { return key }

type fakeConversation struct {
	mu      sync.Mutex
	inbound []application.Inbound
	cancels []int64
}

func (f *fakeConversation) HandleMessage(_ context.Context, in application.Inbound) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, in)
	if in.IsStart {
		return []string{"greeting"}
	}
	return []string{"reply 1", "", "reply 2"}
}

func (f *fakeConversation) HandleCancel(_ context.Context, tgID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, tgID)
	return []string{"cancelled"}
}

func (f *fakeConversation) HandleHelp() string { return "help text" }

func (f *fakeConversation) received() []application.Inbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]application.Inbound(nil), f.inbound...)
}

type sent struct {
	chatID int64
	text   string
}

type recordingOut struct {
	mu      sync.Mutex
	msgs    []sent
	typing  int
	failOn  string
	sendErr error
}

func (o *recordingOut) SendMessage(_ context.Context, chatID int64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failOn != "" && text == o.failOn {
		return o.sendErr
	}
	o.msgs = append(o.msgs, sent{chatID, text})
	return nil
}

func (o *recordingOut) SendTyping(context.Context, int64) error {
	o.mu.Lock()
	o.typing++
	o.mu.Unlock()
	return nil
}

func (o *recordingOut) texts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.msgs))
	for _, m := range o.msgs {
		out = append(out, m.text)
	}
	return out
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func newRouter(conv Conversation, out *recordingOut, lim RateLimiter) *router {
	return &router{conv: conv, out: out, tr: keyTranslator{}, limiter: lim, rateLimit: 20, rateWindow: time.Minute, log: nopLogger()}
}

func TestRouter_TextMessage(t *testing.T) {
	conv := &fakeConversation{}
	out := &recordingOut{}
	r := newRouter(conv, out, nil)

	require.NoError(t, r.route(context.Background(), incoming{ChatID: 10, UserID: 5, Text: "айфон"}))

	assert.Equal(t, 1, out.typing)
	assert.Equal(t, []string{"reply 1", "reply 2"}, out.texts())
	require.Len(t, conv.received(), 1)
	assert.Equal(t, application.Inbound{TelegramID: 5, Text: "айфон"}, conv.received()[0])
}

func TestRouter_Commands(t *testing.T) {
	conv := &fakeConversation{}
	out := &recordingOut{}
	r := newRouter(conv, out, nil)
	ctx := context.Background()

	require.NoError(t, r.route(ctx, incoming{ChatID: 5, UserID: 5, Text: "/start", Command: "start"}))
	require.NoError(t, r.route(ctx, incoming{ChatID: 5, UserID: 5, Text: "/cancel", Command: "cancel"}))
	require.NoError(t, r.route(ctx, incoming{ChatID: 5, UserID: 5, Text: "/HELP", Command: "HELP"}))
	require.NoError(t, r.route(ctx, incoming{ChatID: 5, UserID: 5, Text: "/buy", Command: "buy"}))

	assert.Equal(t, []string{"greeting", "cancelled", "help text", "help text"}, out.texts())
	assert.True(t, conv.received()[0].IsStart)
	assert.Equal(t, []int64{5}, conv.cancels)
	assert.Zero(t, out.typing)
}

func TestRouter_RateLimited(t *testing.T) {
	conv := &fakeConversation{}
	out := &recordingOut{}
	lim := &fakeLimiter{allow: false}
	r := newRouter(conv, out, lim)

	require.NoError(t, r.route(context.Background(), incoming{ChatID: 5, UserID: 5, Text: "привет"}))

	assert.Equal(t, []string{"rate_limited"}, out.texts())
	assert.Empty(t, conv.received())
	assert.Equal(t, []string{"rate_limit:5:message"}, lim.keys)
}

func TestRouter_LimiterErrorFailsOpen(t *testing.T) {
	conv := &fakeConversation{}
	out := &recordingOut{}
	r := newRouter(conv, out, &fakeLimiter{err: errors.New("redis down")})

	require.NoError(t, r.route(context.Background(), incoming{ChatID: 5, UserID: 5, Text: "привет"}))
	assert.Len(t, conv.received(), 1)
}

func TestRouter_SendFailureDoesNotStopLaterReplies(t *testing.T) {
	conv := &fakeConversation{}
	boom := errors.New("forbidden")
	out := &recordingOut{failOn: "reply 1", sendErr: boom}
	r := newRouter(conv, out, nil)

	err := r.route(context.Background(), incoming{ChatID: 5, UserID: 5, Text: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"reply 2"}, out.texts())
}

type fakeAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	messages []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	stopped  bool
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestRealBot_PollsAndReplies(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	conv := &fakeConversation{}
	bot, err := newRealBot(api, Options{
		Conversation: conv,
		Translator:   keyTranslator{},
		Pool:         worker.NewKeyedPool(2, 4, nopLogger()),
		Logger:       nopLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.StartPolling(ctx) }()

	api.updates <- tgbotapi.Update{UpdateID: 1} // no message: skipped
	api.updates <- textUpdate(42, "/start")
	api.updates <- textUpdate(42, "samsung")

	require.Eventually(t, func() bool { return len(api.sentTexts()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"greeting", "reply 1", "reply 2"}, api.sentTexts())

	in := conv.received()
	require.Len(t, in, 2)
	assert.True(t, in[0].IsStart)
	assert.Equal(t, "samsung", in[1].Text)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("StartPolling did not return after cancel")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)
	var menu, typing int
	for _, c := range api.requests {
		switch c.(type) {
		case tgbotapi.SetMyCommandsConfig:
			menu++
		case tgbotapi.ChatActionConfig:
			typing++
		}
	}
	assert.Equal(t, 1, menu)
	assert.Equal(t, 1, typing)
}

func TestNewRealBot_RequiresCollaborators(t *testing.T) {
	_, err := newRealBot(&fakeAPI{}, Options{Pool: worker.NewKeyedPool(1, 1, nil), Logger: nopLogger()})
	assert.Error(t, err)
	_, err = newRealBot(&fakeAPI{}, Options{Conversation: &fakeConversation{}, Logger: nopLogger()})
	assert.Error(t, err)
}

func TestRunConsole(t *testing.T) {
	var buf bytes.Buffer
	conv := &fakeConversation{}
	err := RunConsole(context.Background(), strings.NewReader("/start@shop_bot\nайфон\n/help\n"), ConsoleOptions{
		Conversation: conv,
		Translator:   keyTranslator{},
		Out:          NewNoopBotAdapter(&buf, nopLogger()),
		UserID:       1,
		Logger:       nopLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, "bot> greeting\nbot> reply 1\nbot> reply 2\nbot> help text\n", buf.String())
	in := conv.received()
	require.Len(t, in, 2)
	assert.True(t, in[0].IsStart)
	assert.Equal(t, int64(1), in[1].TelegramID)
}
