// Package telegram is the chat transport of the bot.
package telegram

import (
	"context"
	"fmt"

	"github.com/bimate/backend/internal/application/navigation"
	"github.com/bimate/backend/internal/domain/report"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of tgbotapi.BotAPI the bot uses.
// Send is for calls answering with a message, Request for the rest.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier implements navigation.Notifier on top of the Bot API
type Notifier struct {
	api API
}

// NewNotifier creates a new Notifier
func NewNotifier(api API) *Notifier {
	return &Notifier{api: api}
}

// SendMenu sends text with an inline keyboard and returns the message id.
// An empty menu sends plain text.
func (n *Notifier) SendMenu(ctx context.Context, chatID int64, text string, menu navigation.Menu) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(menu.Rows) > 0 {
		msg.ReplyMarkup = inlineKeyboard(menu)
	}
	sent, err := n.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send menu: %w", err)
	}
	return sent.MessageID, nil
}

// EditMenu replaces the text and keyboard of a sent menu
func (n *Notifier) EditMenu(ctx context.Context, chatID int64, msgID int, text string, menu navigation.Menu) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, inlineKeyboard(menu))
	if _, err := n.api.Send(edit); err != nil {
		return fmt.Errorf("edit menu: %w", err)
	}
	return nil
}

// Delete removes a message
func (n *Notifier) Delete(ctx context.Context, chatID int64, msgID int) error {
	if _, err := n.api.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// SendText sends a plain message with the main keyboard attached
func (n *Notifier) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = MainKeyboard()
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendArtifact delivers a chart as a photo and everything else as a document.
// Attachments follow as separate documents.
func (n *Notifier) SendArtifact(ctx context.Context, chatID int64, artifact *report.Artifact) error {
	if err := n.sendFile(chatID, artifact); err != nil {
		return err
	}
	for _, a := range artifact.Attachments {
		if err := n.sendFile(chatID, a); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) sendFile(chatID int64, a *report.Artifact) error {
	file := tgbotapi.FileBytes{Name: a.Filename, Bytes: a.Data}

	var c tgbotapi.Chattable
	if a.IsPhoto() {
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = a.Caption
		c = photo
	} else {
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = a.Caption
		c = doc
	}

	if _, err := n.api.Send(c); err != nil {
		return fmt.Errorf("send %s: %w", a.Filename, err)
	}
	return nil
}

func inlineKeyboard(menu navigation.Menu) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu.Rows))
	for _, r := range menu.Rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var _ navigation.Notifier = (*Notifier)(nil)
