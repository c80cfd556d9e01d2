package bot

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

const chatQueueSize = 64

type Bot struct {
	api     *tele.Bot
	manager *Manager
	log     logrus.FieldLogger
	queue   *queue
	cancel  context.CancelFunc
}

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// NewAPI creates the telebot client. Updates are processed synchronously so
// that the per-chat queue sees them in arrival order.
func NewAPI(cfg Config) (*tele.Bot, error) {
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	pref := tele.Settings{
		Token:       cfg.Token,
		Poller:      &tele.LongPoller{Timeout: cfg.PollTimeout},
		Synchronous: true,
	}
	return tele.NewBot(pref)
}

func New(api *tele.Bot, m *Manager, log logrus.FieldLogger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	bot := &Bot{api: api, manager: m, log: log, cancel: cancel}
	bot.queue = newQueue(ctx, chatQueueSize, m.Dispatch)
	bot.register()
	return bot
}

// Start blocks while polling for updates.
func (b *Bot) Start() {
	b.log.WithField("username", b.api.Me.Username).Info("bot started")
	b.api.Start()
}

// Stop halts polling and lets queued events finish. Work still running after
// grace has its context cancelled. Stop returns once every chat worker exited.
func (b *Bot) Stop(grace time.Duration) {
	b.api.Stop()
	b.drain(grace)
}

func (b *Bot) drain(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		b.queue.close()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		b.log.WithField("grace", grace).Warn("aborting unfinished work")
		b.cancel()
		<-done
	}
	b.cancel()
}

func (b *Bot) register() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/zip", b.handleZip)
	b.api.Handle("/cancel", b.handleCancel)
	b.api.Handle("/status", b.handleStatus)
	b.api.Handle(tele.OnDocument, b.handleDocument)
	b.api.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleStart(c tele.Context) error {
	return b.enqueue(Event{Kind: EventStart, ChatID: c.Chat().ID})
}

func (b *Bot) handleZip(c tele.Context) error {
	return b.enqueue(Event{Kind: EventZip, ChatID: c.Chat().ID})
}

func (b *Bot) handleCancel(c tele.Context) error {
	return b.enqueue(Event{Kind: EventCancel, ChatID: c.Chat().ID})
}

func (b *Bot) handleStatus(c tele.Context) error {
	return b.enqueue(Event{Kind: EventStatus, ChatID: c.Chat().ID})
}

func (b *Bot) handleDocument(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	return b.enqueue(Event{
		Kind:     EventDocument,
		ChatID:   c.Chat().ID,
		FileID:   doc.FileID,
		FileName: doc.FileName,
	})
}

// Any text that is not a registered command may be a password.
func (b *Bot) handleText(c tele.Context) error {
	return b.enqueue(Event{Kind: EventText, ChatID: c.Chat().ID, Text: c.Message().Text})
}

// enqueue routes authorized chats through their queue. Unauthorized events
// are handled inline so they never allocate a chat worker.
func (b *Bot) enqueue(ev Event) error {
	if !b.manager.Authorized(ev.ChatID) {
		b.manager.Dispatch(context.Background(), ev)
		return nil
	}
	if !b.queue.push(ev) {
		b.log.WithField("chat_id", ev.ChatID).Warn("event dropped: bot stopping")
	}
	return nil
}

// gateway adapts the telebot client to the Gateway interface.
type gateway struct {
	api *tele.Bot
}

func NewGateway(api *tele.Bot) Gateway {
	return &gateway{api: api}
}

func (g *gateway) Send(_ context.Context, chatID int64, text string, format Format) error {
	opts := &tele.SendOptions{ParseMode: tele.ParseMode(format)}
	if _, err := g.api.Send(tele.ChatID(chatID), text, opts); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (g *gateway) Fetch(_ context.Context, fileID string) (io.ReadCloser, error) {
	return g.api.File(&tele.File{FileID: fileID})
}
