// Package bot is the Telegram presentation layer: it routes incoming
// updates to the shop service and renders menus, and it implements the
// delivery, notification and channel-role capabilities the services
// consume.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nofumex/onion-shop/internal/auth"
	service "github.com/nofumex/onion-shop/internal/services"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	svc        service.ShopService
	authorizer *auth.Authorizer

	channelID       int64
	channelUsername string

	// Users currently mid "@username amount" admin input.
	mu            sync.Mutex
	pendingAdjust map[int64]bool
}

func New(api *tgbotapi.BotAPI, svc service.ShopService, channelID int64, channelUsername string) *Bot {
	return &Bot{
		api:             api,
		svc:             svc,
		channelID:       channelID,
		channelUsername: channelUsername,
		pendingAdjust:   make(map[int64]bool),
	}
}

// SetAuthorizer must be called before Run; the authorizer itself uses
// the bot as its channel-role checker.
func (b *Bot) SetAuthorizer(a *auth.Authorizer) {
	b.authorizer = a
}

// Run consumes the long-poll update stream until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	slog.Info("bot started", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			slog.Info("bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// SendDocument implements service.Deliverer.
func (b *Bot) SendDocument(ctx context.Context, userID int64, filename string, payload []byte, caption string) error {
	doc := tgbotapi.NewDocument(userID, tgbotapi.FileBytes{Name: filename, Bytes: payload})
	doc.Caption = caption
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send document to %d: %w", userID, err)
	}
	return nil
}

// NotifyCredited implements service.CreditNotifier.
func (b *Bot) NotifyCredited(ctx context.Context, userID int64, amount int64) {
	text := fmt.Sprintf("✅ Payment of %d$ received. Balance credited.", amount)
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		slog.Error("failed to notify user about credit", "user_id", userID, "error", err)
	}
}

// IsChannelAdmin implements auth.ChannelRoleChecker.
func (b *Bot) IsChannelAdmin(ctx context.Context, userID int64) (bool, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: b.channelID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}
	return member.Status == "administrator" || member.Status == "creator", nil
}

// isSubscribed reports whether the user is a member of the broadcast
// channel. Any lookup failure counts as not subscribed.
func (b *Bot) isSubscribed(userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: b.channelID, UserID: userID},
	})
	if err != nil {
		slog.Warn("subscription check failed", "user_id", userID, "error", err)
		return false
	}
	switch member.Status {
	case "left", "kicked":
		return false
	}
	return true
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(id, text string, alert bool) {
	var cb tgbotapi.CallbackConfig
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(id, text)
	} else {
		cb = tgbotapi.NewCallback(id, text)
	}
	if _, err := b.api.Request(cb); err != nil {
		slog.Error("failed to answer callback", "error", err)
	}
}

func (b *Bot) setPendingAdjust(userID int64, pending bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pending {
		b.pendingAdjust[userID] = true
	} else {
		delete(b.pendingAdjust, userID)
	}
}

func (b *Bot) isPendingAdjust(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingAdjust[userID]
}
