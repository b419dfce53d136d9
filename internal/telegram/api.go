package telegram

import (
	"context"
	"errors"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the slice of the bot platform the pipeline needs. The controller,
// reporter and upload gate all talk through it so tests can swap a fake.
type API interface {
	// SendMessage returns the sent message ID (used as the progress slot).
	SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditMessageText(chatID int64, messageID int, text string) error
	DeleteMessage(chatID int64, messageID int) error
	// SendDocument streams the file at path under the given display name.
	SendDocument(ctx context.Context, chatID int64, path, filename string) error
	GetChatMember(group string, userID int64) (string, error)
	AnswerCallback(callbackID, text string) error
}

// Edit failures are cosmetic; callers classify them only to decide log noise.
var (
	ErrEditNotModified = errors.New("message is not modified")
	ErrEditNotFound    = errors.New("message to edit not found")
)

// ClassifyEditError maps a raw transport error onto the two known benign
// edit failures, or returns it unchanged.
func ClassifyEditError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "message is not modified"):
		return ErrEditNotModified
	case strings.Contains(msg, "message to edit not found"):
		return ErrEditNotFound
	}
	return err
}

// Client implements API over go-telegram-bot-api.
type Client struct {
	bot *tgbotapi.BotAPI
}

func NewClient(bot *tgbotapi.BotAPI) *Client {
	return &Client{bot: bot}
}

func (c *Client) SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditMessageText(chatID int64, messageID int, text string) error {
	_, err := c.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: filename, Reader: f})

	// tgbotapi has no context-aware Send; bound the wait here. The upload
	// may still complete server-side after a timeout fires.
	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(doc)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) GetChatMember(group string, userID int64) (string, error) {
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: group,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}
