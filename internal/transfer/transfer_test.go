package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func TestCaption_HTMLEscapesUserText(t *testing.T) {
	c := Caption{Plain("🔒 Password: "), Code("<b>`a`&*_</b>"), Plain("\n🛡️ AES-256 Encrypted")}

	assert.Equal(t,
		"🔒 Password: <code>&lt;b&gt;`a`&amp;*_&lt;/b&gt;</code>\n🛡️ AES-256 Encrypted",
		c.HTML())
	assert.Equal(t, "🔒 Password: <b>`a`&*_</b>\n🛡️ AES-256 Encrypted", c.String())
}

func TestCaption_EmptyCodeSegment(t *testing.T) {
	c := Caption{Plain("Password: "), Code("")}
	assert.Equal(t, "Password: ", c.HTML())
	assert.Len(t, styledCaption(c), 1)
}

type fakeSender struct {
	to   tele.Recipient
	what interface{}
	opts []interface{}
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.to, f.what, f.opts = to, what, opts
	return &tele.Message{}, f.err
}

func TestBotAPI_SendFile(t *testing.T) {
	s := &fakeSender{}
	c := NewBotAPI(s)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.SendFile(ctx, 42, File{
		Path:    "/tmp/Secure.zip",
		Name:    "Secure.zip",
		Caption: Caption{Plain("pw "), Code("a<b")},
	}))

	assert.Equal(t, "42", s.to.Recipient())
	doc, ok := s.what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "Secure.zip", doc.FileName)
	assert.Equal(t, "pw <code>a&lt;b</code>", doc.Caption)
	assert.Equal(t, "/tmp/Secure.zip", doc.File.FileLocal)
	require.Len(t, s.opts, 1)
	assert.Equal(t, tele.ModeHTML, s.opts[0].(*tele.SendOptions).ParseMode)
}

func TestBotAPI_SendFileError(t *testing.T) {
	c := NewBotAPI(&fakeSender{err: errors.New("too big")})
	err := c.SendFile(context.Background(), 1, File{Path: "x", Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too big")
}

func TestPeerFor(t *testing.T) {
	assert.Equal(t, &tg.InputPeerUser{UserID: 42}, peerFor(42))
	assert.Equal(t, &tg.InputPeerChat{ChatID: 4242}, peerFor(-4242))
	assert.Equal(t, &tg.InputPeerChannel{ChannelID: 1234567890}, peerFor(-1001234567890))
}

func TestMTProto_SendBeforeConnect(t *testing.T) {
	log, _ := test.NewNullLogger()
	m := NewMTProto(MTProtoConfig{AppID: 1, AppHash: "h"}, log)

	err := m.SendFile(context.Background(), 1, File{Path: "x", Name: "x"})
	require.ErrorIs(t, err, ErrNotConnected)
	m.Close()
}
