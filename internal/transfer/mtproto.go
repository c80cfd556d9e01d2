package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/sirupsen/logrus"
)

type MTProtoConfig struct {
	AppID       int
	AppHash     string
	BotToken    string
	SessionFile string
}

// MTProto sends files through a bot-authorized MTProto connection, which
// lifts the Bot API upload size limit.
type MTProto struct {
	cfg MTProtoConfig
	log logrus.FieldLogger

	mu     sync.Mutex
	api    *tg.Client
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMTProto(cfg MTProtoConfig, log logrus.FieldLogger) *MTProto {
	return &MTProto{cfg: cfg, log: log.WithField("component", "mtproto")}
}

// Connect starts the client in the background and waits until it is
// authorized. Calling it on a live connection is a no-op; a connection that
// has dropped is re-established.
func (m *MTProto) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.api != nil {
		return nil
	}

	client := telegram.NewClient(m.cfg.AppID, m.cfg.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: m.cfg.SessionFile},
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		err := client.Run(runCtx, func(ctx context.Context) error {
			if err := m.authorize(ctx, client); err != nil {
				return err
			}
			ready <- nil
			<-ctx.Done()
			return ctx.Err()
		})
		select {
		case ready <- err:
		default:
		}

		m.mu.Lock()
		if m.done == done {
			m.api = nil
			m.cancel = nil
			m.done = nil
		}
		m.mu.Unlock()
		if err != nil && runCtx.Err() == nil {
			m.log.WithError(err).Warn("mtproto connection closed")
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			cancel()
			return fmt.Errorf("mtproto connect: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	m.api = client.API()
	m.cancel = cancel
	m.done = done
	m.log.Info("mtproto connected")
	return nil
}

func (m *MTProto) authorize(ctx context.Context, client *telegram.Client) error {
	status, err := client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("auth status: %w", err)
	}
	if status.Authorized {
		return nil
	}
	if _, err := client.Auth().Bot(ctx, m.cfg.BotToken); err != nil {
		return fmt.Errorf("bot login: %w", err)
	}
	return nil
}

func (m *MTProto) SendFile(ctx context.Context, chatID int64, f File) error {
	m.mu.Lock()
	api := m.api
	m.mu.Unlock()
	if api == nil {
		return ErrNotConnected
	}

	up := uploader.NewUploader(api)
	input, err := up.FromPath(ctx, f.Path)
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.Name, err)
	}

	doc := message.UploadedDocument(input, styledCaption(f.Caption)...).
		Filename(f.Name).
		MIME("application/zip")

	sender := message.NewSender(api).WithUploader(up)
	if _, err := sender.To(peerFor(chatID)).Media(ctx, doc); err != nil {
		return fmt.Errorf("send %s: %w", f.Name, err)
	}
	return nil
}

// Close stops the background connection and waits for it to exit.
func (m *MTProto) Close() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.api, m.cancel, m.done = nil, nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// channelOffset is the Bot API prefix for channel and supergroup IDs (-100...).
const channelOffset = 1_000_000_000_000

// peerFor maps a Bot API chat ID onto an MTProto peer. Bots may address
// peers they have already seen with a zero access hash.
func peerFor(chatID int64) tg.InputPeerClass {
	switch {
	case chatID < -channelOffset:
		return &tg.InputPeerChannel{ChannelID: -chatID - channelOffset}
	case chatID < 0:
		return &tg.InputPeerChat{ChatID: -chatID}
	default:
		return &tg.InputPeerUser{UserID: chatID}
	}
}

func styledCaption(c Caption) []styling.StyledTextOption {
	opts := make([]styling.StyledTextOption, 0, len(c))
	for _, s := range c {
		if s.Text == "" {
			continue
		}
		if s.Code {
			opts = append(opts, styling.Code(s.Text))
		} else {
			opts = append(opts, styling.Plain(s.Text))
		}
	}
	return opts
}
