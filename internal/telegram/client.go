// Package telegram wraps the Telegram Bot API client used for all outbound
// calls: chat replies (text and voice), callback-query acknowledgments, file
// downloads, and webhook management.
//
// The package exposes the narrow API interface consumed by the message
// handler and HTTP controllers so they can be tested against fakes; Client is
// the production implementation over github.com/go-telegram/bot.
package telegram

import (
	"context"
	"fmt"
	"os"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// API is the subset of the Telegram Bot API the relay depends on.
//
// Implementations must be safe for concurrent use and must honor the provided
// context for cancellation and timeouts.
type API interface {
	// SendMessage sends an HTML-formatted text message to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error
	// SendVoice uploads the OGG file at path as a voice message.
	SendVoice(ctx context.Context, chatID int64, path string) error
	// AnswerCallbackQuery acknowledges an inline-button press.
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
	// DownloadFile fetches a Telegram file to a local temp file and returns
	// its path together with a cleanup func that removes it. The cleanup func
	// is non-nil whenever err is nil and is safe to call more than once.
	DownloadFile(ctx context.Context, fileID string) (path string, cleanup func(), err error)
	// SetWebhook registers url as the bot's webhook endpoint, protected by
	// the given secret token.
	SetWebhook(ctx context.Context, url, secretToken string) error
	// DeleteWebhook removes the registered webhook.
	DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error
	// WebhookInfo returns the current webhook registration state.
	WebhookInfo(ctx context.Context) (*models.WebhookInfo, error)
}

// Client implements API over a go-telegram bot instance.
type Client struct {
	bot     *bot.Bot
	tempDir string
}

// NewClient constructs a Client for the given bot token. Downloaded files are
// written under tempDir (the OS default when empty). The getMe handshake is
// skipped so construction works without network access.
func NewClient(token, tempDir string) (*Client, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	return &Client{bot: b, tempDir: tempDir}, nil
}

// SendMessage sends text to the chat with HTML parse mode.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendVoice uploads the file at path as a voice note.
func (c *Client) SendVoice(ctx context.Context, chatID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open voice file %s: %w", path, err)
	}
	defer f.Close()

	_, err = c.bot.SendVoice(ctx, &bot.SendVoiceParams{
		ChatID: chatID,
		Voice: &models.InputFileUpload{
			Filename: "response.ogg",
			Data:     f,
		},
	})
	if err != nil {
		return fmt.Errorf("send voice to chat %d: %w", chatID, err)
	}
	return nil
}

// AnswerCallbackQuery acknowledges a callback query so the client stops
// showing its progress indicator.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	_, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQueryID,
	})
	if err != nil {
		return fmt.Errorf("answer callback query %s: %w", callbackQueryID, err)
	}
	return nil
}

// SetWebhook registers the webhook URL with Telegram, restricted to the
// update shapes the relay handles.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	_, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            url,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message", "edited_message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook unregisters the webhook.
func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	_, err := c.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{
		DropPendingUpdates: dropPendingUpdates,
	})
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// WebhookInfo returns the current webhook registration.
func (c *Client) WebhookInfo(ctx context.Context) (*models.WebhookInfo, error) {
	info, err := c.bot.GetWebhookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get webhook info: %w", err)
	}
	return info, nil
}
