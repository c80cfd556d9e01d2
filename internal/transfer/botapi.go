package transfer

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Sender is the subset of *tele.Bot used for delivery.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// BotAPI delivers archives as ordinary bot documents. It is used when no
// MTProto application credentials are configured.
type BotAPI struct {
	bot Sender
}

func NewBotAPI(bot Sender) *BotAPI {
	return &BotAPI{bot: bot}
}

func (b *BotAPI) Connect(context.Context) error { return nil }

func (b *BotAPI) SendFile(ctx context.Context, chatID int64, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := &tele.Document{
		File:     tele.FromDisk(f.Path),
		FileName: f.Name,
		MIME:     "application/zip",
		Caption:  f.Caption.HTML(),
	}
	if _, err := b.bot.Send(tele.ChatID(chatID), doc, &tele.SendOptions{ParseMode: tele.ModeHTML}); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}
