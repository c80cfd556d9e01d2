package bot

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/eliseohh/zipperbot/internal/archive"
	"github.com/eliseohh/zipperbot/internal/config"
	"github.com/eliseohh/zipperbot/internal/ledger"
	"github.com/eliseohh/zipperbot/internal/logging"
	"github.com/eliseohh/zipperbot/internal/session"
	"github.com/eliseohh/zipperbot/internal/staging"
	"github.com/eliseohh/zipperbot/internal/transfer"
	"github.com/sirupsen/logrus"
)

type Format string

const (
	FormatPlain    Format = ""
	FormatMarkdown Format = "Markdown"
)

// Gateway is the messaging side of the bot: replies out, uploads in.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, format Format) error
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Ledger stores the outcome of every archiving attempt.
type Ledger interface {
	Record(ctx context.Context, d *ledger.Delivery) error
	Stats(ctx context.Context, chatID int64) (ledger.Stats, error)
}

type EventKind int

const (
	EventStart EventKind = iota
	EventDocument
	EventText
	EventZip
	EventCancel
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventDocument:
		return "document"
	case EventText:
		return "text"
	case EventZip:
		return "zip"
	case EventCancel:
		return "cancel"
	case EventStatus:
		return "status"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one inbound update, reduced to what the workflow needs.
type Event struct {
	Kind     EventKind
	ChatID   int64
	FileID   string
	FileName string
	Text     string
}

type ManagerConfig struct {
	Auth        config.AuthSet
	ArchiveName string
	MaxPartSize int64
	SessionTTL  time.Duration
}

// Manager drives the per-chat upload workflow:
//
//	Idle -> Collecting -> AwaitingPassword -> Archiving -> Idle
//
// Every event is checked against the authorization set, then handled under
// the chat's lock according to the chat's current state. Events that make no
// sense in that state are ignored.
type Manager struct {
	cfg      ManagerConfig
	sessions *session.Store
	staging  *staging.Root
	gateway  Gateway
	transfer transfer.Client
	ledger   Ledger
	log      logrus.FieldLogger
}

func NewManager(cfg ManagerConfig, sessions *session.Store, stage *staging.Root,
	gw Gateway, tr transfer.Client, led Ledger, log logrus.FieldLogger) *Manager {
	if cfg.ArchiveName == "" {
		cfg.ArchiveName = config.DefaultArchiveName
	}
	if cfg.MaxPartSize <= 0 {
		cfg.MaxPartSize = config.DefaultMaxPartSize
	}
	return &Manager{
		cfg:      cfg,
		sessions: sessions,
		staging:  stage,
		gateway:  gw,
		transfer: tr,
		ledger:   led,
		log:      log,
	}
}

func (m *Manager) Authorized(chatID int64) bool {
	return m.cfg.Auth.Allowed(chatID)
}

// Dispatch handles a single event. Failures are reported to the chat and
// logged; they never escape to the caller.
func (m *Manager) Dispatch(ctx context.Context, ev Event) {
	log := logging.ForChat(m.log, ev.ChatID).WithField("event", ev.Kind.String())

	if !m.Authorized(ev.ChatID) {
		log.Debug("unauthorized event dropped")
		if ev.Kind == EventStart {
			m.reply(ctx, ev.ChatID, msgDenied, FormatMarkdown)
		}
		return
	}

	unlock := m.sessions.Lock(ev.ChatID)
	defer unlock()

	sess, _ := m.sessions.Get(ev.ChatID)
	state := session.Idle
	if sess != nil {
		state = sess.State
	}
	log = log.WithField("state", state.String())

	switch ev.Kind {
	case EventStart:
		m.reply(ctx, ev.ChatID, msgWelcome, FormatMarkdown)
	case EventStatus:
		m.status(ctx, ev.ChatID, sess)
	case EventCancel:
		m.cancel(ctx, log, ev.ChatID, sess)
	case EventDocument:
		if state != session.Idle && state != session.Collecting {
			log.Debug("upload ignored")
			return
		}
		m.collect(ctx, log, ev, sess)
	case EventZip:
		switch state {
		case session.Idle:
			m.reply(ctx, ev.ChatID, msgNoFiles, FormatPlain)
		case session.Collecting:
			if !sess.Transition(session.AwaitingPassword) {
				m.reply(ctx, ev.ChatID, msgNoFiles, FormatPlain)
				return
			}
			m.sessions.Touch(ev.ChatID)
			m.reply(ctx, ev.ChatID, msgPasswordPrompt, FormatPlain)
		default:
			log.Debug("zip ignored")
		}
	case EventText:
		if state != session.AwaitingPassword {
			log.Debug("text ignored")
			return
		}
		if !passwordFits(ev.Text) {
			m.sessions.Touch(ev.ChatID)
			m.reply(ctx, ev.ChatID, msgPasswordTooLong, FormatPlain)
			return
		}
		m.archive(ctx, log, sess, ev.Text)
	}
}

func (m *Manager) collect(ctx context.Context, log logrus.FieldLogger, ev Event, sess *session.Session) {
	seq := 1
	if sess != nil {
		seq = len(sess.Files) + 1
	}
	name := staging.CleanName(ev.FileName, seq)

	path, size, err := m.stage(ctx, ev, seq, name)
	if err != nil {
		log.WithError(err).Error("staging failed")
		if sess == nil {
			m.removeStaging(log, ev.ChatID)
		}
		m.replyError(ctx, ev.ChatID, err)
		return
	}

	if sess == nil {
		sess = m.sessions.Create(ev.ChatID)
	} else {
		m.sessions.Touch(ev.ChatID)
	}
	sess.Add(session.File{DisplayName: name, StagedPath: path, Size: size})
	added := sess.Files[len(sess.Files)-1]

	log.WithFields(logrus.Fields{"file": added.DisplayName, "bytes": size}).Info("file staged")
	m.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Saved: %s (Total: %d)", added.DisplayName, len(sess.Files)), FormatPlain)
}

func (m *Manager) stage(ctx context.Context, ev Event, seq int, name string) (string, int64, error) {
	rc, err := m.gateway.Fetch(ctx, ev.FileID)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", name, err)
	}
	defer rc.Close()
	return m.staging.Stage(ctx, ev.ChatID, seq, name, rc)
}

// archive builds and delivers the archive. The session and its staging
// directory are gone when it returns, whatever the outcome.
func (m *Manager) archive(ctx context.Context, log logrus.FieldLogger, sess *session.Session, password string) {
	chatID := sess.ChatID
	if !sess.Transition(session.Archiving) {
		return
	}
	defer func() {
		m.sessions.Delete(chatID)
		m.removeStaging(log, chatID)
	}()

	del := &ledger.Delivery{
		ChatID:  chatID,
		Archive: m.cfg.ArchiveName,
		Files:   len(sess.Files),
		Status:  ledger.StatusDelivered,
	}

	res, parts, err := m.deliver(ctx, sess, password)
	del.Bytes = res.Size
	del.Checksum = res.Checksum
	del.Parts = parts

	if err != nil {
		del.Status = ledger.StatusFailed
		del.Error = err.Error()
		log.WithError(err).Error("archive delivery failed")
		m.replyError(ctx, chatID, err)
	} else {
		log.WithFields(logrus.Fields{"files": del.Files, "bytes": del.Bytes, "parts": parts}).Info("archive delivered")
	}

	if err := m.ledger.Record(ctx, del); err != nil {
		log.WithError(err).Warn("ledger write failed")
	}
}

func (m *Manager) deliver(ctx context.Context, sess *session.Session, password string) (archive.Result, int, error) {
	dir, err := m.staging.Ensure(sess.ChatID)
	if err != nil {
		return archive.Result{}, 0, err
	}

	members := make([]archive.Member, 0, len(sess.Files))
	for _, f := range sess.Files {
		members = append(members, archive.Member{Name: f.DisplayName, Path: f.StagedPath})
	}

	res, err := archive.Build(filepath.Join(dir, m.cfg.ArchiveName), members, password)
	if err != nil {
		return archive.Result{}, 0, err
	}

	parts, err := archive.Split(res.Path, m.cfg.MaxPartSize)
	if err != nil {
		return res, 0, fmt.Errorf("split archive: %w", err)
	}

	if err := m.transfer.Connect(ctx); err != nil {
		return res, len(parts), err
	}
	for i, p := range parts {
		f := transfer.File{
			Path:    p,
			Name:    filepath.Base(p),
			Caption: deliveryCaption(password, res.Encrypted, i+1, len(parts)),
		}
		if err := m.transfer.SendFile(ctx, sess.ChatID, f); err != nil {
			return res, len(parts), err
		}
	}
	return res, len(parts), nil
}

func (m *Manager) cancel(ctx context.Context, log logrus.FieldLogger, chatID int64, sess *session.Session) {
	if sess == nil {
		m.reply(ctx, chatID, msgNothingToCancel, FormatPlain)
		return
	}
	m.sessions.Delete(chatID)
	m.removeStaging(log, chatID)
	log.Info("session cancelled")
	m.reply(ctx, chatID, msgCancelled, FormatPlain)
}

func (m *Manager) status(ctx context.Context, chatID int64, sess *session.Session) {
	st, err := m.ledger.Stats(ctx, chatID)
	if err != nil {
		logging.ForChat(m.log, chatID).WithError(err).Warn("ledger read failed")
	}
	var idle time.Duration
	if at, ok := m.sessions.LastActivity(chatID); ok {
		idle = time.Since(at)
	}
	m.reply(ctx, chatID, statusText(sess, idle, st), FormatPlain)
}

// Expire destroys sessions idle for longer than the configured TTL and
// returns how many were removed. A zero TTL disables expiry.
func (m *Manager) Expire(ctx context.Context) int {
	ttl := m.cfg.SessionTTL
	if ttl <= 0 {
		return 0
	}

	n := 0
	for _, chatID := range m.sessions.Idle(ttl) {
		if m.expireOne(ctx, chatID, ttl) {
			n++
		}
	}
	return n
}

func (m *Manager) expireOne(ctx context.Context, chatID int64, ttl time.Duration) bool {
	unlock := m.sessions.Lock(chatID)
	defer unlock()

	sess, ok := m.sessions.Get(chatID)
	if !ok || sess.State == session.Archiving || !m.sessions.IsIdle(chatID, ttl) {
		return false
	}

	log := logging.ForChat(m.log, chatID).WithField("state", sess.State.String())
	m.sessions.Delete(chatID)
	m.removeStaging(log, chatID)
	log.Info("session expired")
	m.reply(ctx, chatID, msgExpired, FormatPlain)
	return true
}

func (m *Manager) removeStaging(log logrus.FieldLogger, chatID int64) {
	if err := m.staging.Remove(chatID); err != nil {
		log.WithError(err).Warn("staging cleanup failed")
	}
}

func (m *Manager) reply(ctx context.Context, chatID int64, text string, format Format) {
	if err := m.gateway.Send(ctx, chatID, text, format); err != nil {
		logging.ForChat(m.log, chatID).WithError(err).Warn("reply failed")
	}
}

func (m *Manager) replyError(ctx context.Context, chatID int64, err error) {
	m.reply(ctx, chatID, "❌ Error: "+err.Error(), FormatPlain)
}
