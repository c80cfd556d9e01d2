package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// New creates a text logger with full timestamps at the given level.
func New(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l, nil
}

// ForChat returns a logger that tags every entry with the chat identifier.
func ForChat(l logrus.FieldLogger, chatID int64) logrus.FieldLogger {
	return l.WithField("chat_id", chatID)
}
