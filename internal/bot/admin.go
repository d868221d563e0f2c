package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	stderrors "errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
)

var fileClient = &http.Client{Timeout: 30 * time.Second}

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	caps := b.authorizer.Capabilities(ctx, msg.From.ID)
	if !caps.Panel {
		return
	}
	b.sendWithMarkup(msg.Chat.ID, "🔐 Admin panel:", adminKeyboard())
}

func (b *Bot) handleAdminCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID, userID int64, args []string) {
	caps := b.authorizer.Capabilities(ctx, userID)
	if !caps.Panel {
		b.answerCallback(cq.ID, "", false)
		return
	}
	if len(args) == 0 {
		b.answerCallback(cq.ID, "", false)
		return
	}

	switch args[0] {
	case "stats":
		b.showAdminStats(ctx, chatID)
	case "top":
		b.showTopBuyers(ctx, chatID)
	case "adjust":
		if !caps.AdjustBalance {
			b.answerCallback(cq.ID, "❌ Not allowed.", true)
			return
		}
		b.setPendingAdjust(userID, true)
		b.send(chatID, "Enter on one line: @username amount (e.g., @user 100 or @user -50)")
	}
	b.answerCallback(cq.ID, "", false)
}

func (b *Bot) showAdminStats(ctx context.Context, chatID int64) {
	stats, err := b.svc.Stats(ctx)
	if err != nil {
		b.send(chatID, "❌ Failed to load statistics.")
		return
	}

	conversion := 0.0
	if stats.TotalUsers > 0 {
		conversion = float64(stats.UniqueBuyers) / float64(stats.TotalUsers) * 100
	}
	text := fmt.Sprintf(
		"📊 Statistics:\n"+
			"👥 Total users: %d\n"+
			"🛒 Unique buyers: %d\n"+
			"📈 Conversion: %.1f%%\n"+
			"💵 Sales today: %d$\n"+
			"💵 Sales this month: %d$\n"+
			"💳 Avg ticket today: %.2f$\n"+
			"🧾 Total orders: %d\n"+
			"💰 Revenue total: %d$\n",
		stats.TotalUsers, stats.UniqueBuyers, conversion,
		stats.SalesToday, stats.SalesThisMonth, stats.AvgTicketToday,
		stats.TotalOrders, stats.RevenueTotal)
	b.send(chatID, text)
}

func (b *Bot) showTopBuyers(ctx context.Context, chatID int64) {
	top, err := b.svc.TopBuyers(ctx, 5)
	if err != nil {
		b.send(chatID, "❌ Failed to load top buyers.")
		return
	}
	if len(top) == 0 {
		b.send(chatID, "No purchases yet.")
		return
	}

	lines := []string{"🏆 Top buyers:"}
	for i, buyer := range top {
		display := strconv.FormatInt(buyer.UserID, 10)
		if buyer.Username != "" {
			display = "@" + buyer.Username
		}
		lines = append(lines, fmt.Sprintf("%d. %s — %d$", i+1, display, buyer.TotalSpent))
	}
	b.send(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleAdjustLine(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	caps := b.authorizer.Capabilities(ctx, userID)
	if !caps.AdjustBalance {
		b.setPendingAdjust(userID, false)
		return
	}

	parts := strings.Fields(strings.TrimSpace(msg.Text))
	if len(parts) != 2 {
		b.send(msg.Chat.ID, "Format: @username amount. Example: @user 100")
		return
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.send(msg.Chat.ID, "Amount must be a number. Example: @user 100")
		return
	}
	if amount == 0 {
		b.send(msg.Chat.ID, "❌ Amount cannot be zero.")
		return
	}

	targetID, err := b.svc.ResolveIdentity(ctx, parts[0])
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrIdentityNotFound) {
			b.send(msg.Chat.ID, "❌ This @username not found in DB. The user must write to the bot once.")
		} else {
			b.send(msg.Chat.ID, "❌ Enter a valid @username or numeric user ID.")
		}
		return
	}

	if _, err := b.svc.AdjustBalance(ctx, targetID, amount); err != nil {
		b.send(msg.Chat.ID, "❌ Failed to adjust balance. Try again later.")
		return
	}
	b.setPendingAdjust(userID, false)

	if amount > 0 {
		b.send(targetID, fmt.Sprintf("💰 Your balance was credited by %d$ by admin.", amount))
	} else {
		b.send(targetID, fmt.Sprintf("⚠️ %d$ was debited from your balance by admin.", -amount))
	}

	sign := ""
	if amount > 0 {
		sign = "+"
	}
	b.send(msg.Chat.ID, fmt.Sprintf("✅ Balance of %s changed by %s%d$", parts[0], sign, amount))
}

func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message) {
	caps := b.authorizer.Capabilities(ctx, msg.From.ID)
	if !caps.Upload {
		return
	}

	filename := strings.ToLower(msg.Document.FileName)
	if !strings.HasSuffix(filename, ".txt") {
		b.send(msg.Chat.ID, "❌ Only .txt files are allowed.")
		return
	}

	payload, err := b.downloadFile(ctx, msg.Document.FileID)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Failed to download the file. Try again.")
		return
	}

	category, err := b.svc.UploadItem(ctx, filename, payload)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrInvalidCategory) {
			b.send(msg.Chat.ID, "❌ Could not determine category from filename.")
		} else {
			b.send(msg.Chat.ID, "❌ Failed to store the file. Try again.")
		}
		return
	}

	b.send(msg.Chat.ID, fmt.Sprintf("✅ File added to category: %s", category.Name))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := fileClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching file", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
