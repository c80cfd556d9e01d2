// Package transfer delivers finished archives to a chat over a channel that
// accepts larger files than the bot's own upload path.
package transfer

import (
	"context"
	"errors"
	"html"
	"strings"
)

var ErrNotConnected = errors.New("transfer client is not connected")

// Client is the bulk transfer contract. Connect must be safe to call before
// every send; an already connected client returns nil.
type Client interface {
	Connect(ctx context.Context) error
	SendFile(ctx context.Context, chatID int64, f File) error
}

type File struct {
	Path    string
	Name    string
	Caption Caption
}

// Segment is a run of caption text. Code segments are shown monospaced.
type Segment struct {
	Text string
	Code bool
}

// Caption is kept structured until a transport renders it, so user supplied
// text never gets interpreted as markup.
type Caption []Segment

func Plain(s string) Segment { return Segment{Text: s} }
func Code(s string) Segment  { return Segment{Text: s, Code: true} }

// HTML renders the caption for Bot API HTML parse mode.
func (c Caption) HTML() string {
	var b strings.Builder
	for _, s := range c {
		text := html.EscapeString(s.Text)
		if s.Code && text != "" {
			b.WriteString("<code>")
			b.WriteString(text)
			b.WriteString("</code>")
			continue
		}
		b.WriteString(text)
	}
	return b.String()
}

func (c Caption) String() string {
	var b strings.Builder
	for _, s := range c {
		b.WriteString(s.Text)
	}
	return b.String()
}
