package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nofumex/onion-shop/internal/models"
)

// parseCallback splits a structured "action:arg1:arg2" payload.
func parseCallback(data string) (action string, args []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if msg.Document != nil {
		b.handleUpload(ctx, msg)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "admin":
			b.handleAdminCommand(ctx, msg)
		}
		return
	}

	if b.isPendingAdjust(userID) {
		b.handleAdjustLine(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case btnProducts:
		b.sendWithMarkup(msg.Chat.ID, "Choose a section:", sectionsKeyboard())
		return
	case btnStock:
		b.showStock(ctx, msg.Chat.ID)
		return
	case btnProfile:
		b.showProfile(ctx, msg)
		return
	}

	// A bare number is a top-up amount, but only after the user tapped
	// the top-up button.
	if amount, err := strconv.ParseInt(text, 10, 64); err == nil && b.svc.TakeTopUpPending(ctx, userID) {
		b.handleTopUpAmount(ctx, msg.Chat.ID, userID, amount)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	chatID := userID
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
	}

	action, args := parseCallback(cq.Data)
	switch action {
	case "sub":
		b.handleSubscriptionCheck(ctx, cq)
	case "back":
		b.sendMainMenu(chatID)
		b.answerCallback(cq.ID, "", false)
	case "sec":
		b.handleSection(chatID, args)
		b.answerCallback(cq.ID, "", false)
	case "cat":
		b.showCategory(ctx, chatID, args)
		b.answerCallback(cq.ID, "", false)
	case "buy":
		b.showQuantityPicker(chatID, args)
		b.answerCallback(cq.ID, "", false)
	case "qty":
		b.handlePurchase(ctx, cq, chatID, userID, args)
	case "topup":
		b.svc.MarkTopUpPending(ctx, userID)
		b.send(chatID, "💸 Send the top-up amount:")
		b.answerCallback(cq.ID, "", false)
	case "rules":
		b.send(chatID, rulesText)
		b.answerCallback(cq.ID, "", false)
	case "help":
		b.send(chatID, "🔧 Support: @OnionSupport1\n📬 For any questions — write to us.")
		b.answerCallback(cq.ID, "", false)
	case "adm":
		b.handleAdminCallback(ctx, cq, chatID, userID, args)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	username := msg.From.UserName
	if err := b.svc.RegisterUser(ctx, userID, username); err != nil {
		b.send(msg.Chat.ID, "❌ Something went wrong. Try again later.")
		return
	}

	caps := b.authorizer.Capabilities(ctx, userID)
	if !caps.BypassGate && !b.isSubscribed(userID) {
		text := fmt.Sprintf(
			"❗ To use this bot, please subscribe to @%s\n\nAfter subscribing, tap \"Check subscription\".",
			b.channelUsername)
		b.sendWithMarkup(msg.Chat.ID, text, subscribeKeyboard(b.channelUsername))
		return
	}

	b.sendMainMenu(msg.Chat.ID)
}

func (b *Bot) sendMainMenu(chatID int64) {
	text := "<b>👋 Welcome to ONION Shop!</b>\n\nUse the buttons below to navigate ⬇️"
	b.sendWithMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) handleSubscriptionCheck(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	if !b.isSubscribed(userID) {
		b.answerCallback(cq.ID, "❌ You are not subscribed. Please subscribe.", true)
		return
	}

	if cq.Message != nil {
		edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID,
			"✅ You are subscribed! You can now use the bot.")
		if _, err := b.api.Send(edit); err == nil {
			b.sendMainMenu(cq.Message.Chat.ID)
			b.answerCallback(cq.ID, "", false)
			return
		}
	}
	b.sendMainMenu(userID)
	b.answerCallback(cq.ID, "", false)
}

func (b *Bot) handleSection(chatID int64, args []string) {
	section := "root"
	if len(args) > 0 {
		section = args[0]
	}
	switch section {
	case "accounts":
		b.sendWithMarkup(chatID, "Choose an account category:", accountsKeyboard())
	case "proxies":
		b.sendWithMarkup(chatID, "Choose a SOCKS5 option:", proxiesKeyboard())
	default:
		b.sendWithMarkup(chatID, "Choose a section:", sectionsKeyboard())
	}
}

func (b *Bot) showCategory(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		return
	}
	category, ok := models.CategoryByFolder(args[0])
	if !ok {
		b.send(chatID, "❌ Category not found.")
		return
	}

	count := 0
	if lines, err := b.svc.StockReport(ctx); err == nil {
		for _, line := range lines {
			if line.Category.Folder == category.Folder {
				count = line.Count
				break
			}
		}
	}

	if count == 0 {
		text := fmt.Sprintf("❌ No items in <b>%s</b> category.", category.Name)
		if category.Kind == models.KindProxy {
			text = fmt.Sprintf("❌ Option <b>%s</b> is out of stock.", category.Name)
		}
		b.sendWithMarkup(chatID, text, itemKeyboard(category, false))
		return
	}

	text := fmt.Sprintf("📃 Category: <b>%s</b>", category.Name)
	if category.Kind == models.KindProxy {
		text = fmt.Sprintf("📡 Proxy: <b>%s</b>", category.Name)
	}
	b.sendWithMarkup(chatID, text, itemKeyboard(category, true))
}

func (b *Bot) showQuantityPicker(chatID int64, args []string) {
	if len(args) == 0 {
		return
	}
	category, ok := models.CategoryByFolder(args[0])
	if !ok {
		b.send(chatID, "❌ Category not found.")
		return
	}

	title := "accounts"
	if category.Kind == models.KindProxy {
		title = "proxies"
	}
	text := fmt.Sprintf("Choose quantity of %s at %d$ each:", title, category.Price)
	b.sendWithMarkup(chatID, text, quantityKeyboard(category))
}

func (b *Bot) handlePurchase(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID, userID int64, args []string) {
	if len(args) != 2 {
		b.answerCallback(cq.ID, "", false)
		return
	}
	folder := args[0]
	quantity, err := strconv.Atoi(args[1])
	if err != nil || quantity <= 0 {
		b.answerCallback(cq.ID, "", false)
		return
	}

	result, err := b.svc.Purchase(ctx, userID, folder, quantity, b)
	if err != nil {
		b.answerCallback(cq.ID, "", false)
		b.send(chatID, "❌ "+err.Error())
		return
	}

	noun := "accounts"
	if result.Kind == models.KindProxy {
		noun = "proxies"
	}
	b.answerCallback(cq.ID,
		fmt.Sprintf("✅ You purchased %d %s for %d$.", result.Quantity, noun, result.TotalPrice), false)
}

func (b *Bot) showStock(ctx context.Context, chatID int64) {
	lines, err := b.svc.StockReport(ctx)
	if err != nil {
		b.send(chatID, "❌ Failed to load stock. Try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("➖➖➖ Accounts ➖➖➖\n")
	for _, line := range lines {
		if line.Category.Kind != models.KindAccount {
			continue
		}
		fmt.Fprintf(&sb, "%s | %d$ | %d pcs\n", line.Category.Name, line.Category.Price, line.Count)
	}
	sb.WriteString("\n➖➖➖🧰 SOCKS5 Proxies ➖➖➖\n")
	for _, line := range lines {
		if line.Category.Kind != models.KindProxy {
			continue
		}
		country := line.Category.Name
		if _, after, found := strings.Cut(country, " "); found {
			country = after
		}
		fmt.Fprintf(&sb, "%s | %s | %d$ | %d pcs\n", country, line.Category.Flag, line.Category.Price, line.Count)
	}
	b.send(chatID, sb.String())
}

func (b *Bot) showProfile(ctx context.Context, msg *tgbotapi.Message) {
	balance, err := b.svc.GetBalance(ctx, msg.From.ID)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Failed to load profile. Try again later.")
		return
	}

	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	text := fmt.Sprintf("Name: %s\n💰 Balance: %d$", name, balance)
	b.sendWithMarkup(msg.Chat.ID, text, profileKeyboard())
}

func (b *Bot) handleTopUpAmount(ctx context.Context, chatID, userID int64, amount int64) {
	if amount <= 0 {
		b.send(chatID, "❌ Amount must be positive.")
		return
	}

	url, err := b.svc.StartTopUp(ctx, userID, amount)
	if err != nil {
		b.send(chatID, "❌ Failed to create invoice. Try again later.")
		return
	}

	text := fmt.Sprintf("Amount: %d$\nClick the button below to pay via CryptoBot:", amount)
	b.sendWithMarkup(chatID, text, payKeyboard(url))
}

const rulesText = "📜 Rules / Правила:\n\n" +
	"EN:\n" +
	"1) Do not use items from this shop for actions that violate the laws of your country.\n" +
	"2) By purchasing, you automatically accept all rules and take full responsibility for your use.\n" +
	"3) Replacement or refund to balance is possible only if support confirms the item is invalid. " +
	"Evidence is required (screenshots/video). Any fraud attempt leads to denial and possible ban.\n" +
	"4) No refunds for misuse, lack of skills, service/proxy blocks or limits, changes in service " +
	"rules/policies, or if the item was partially used or shared with third parties.\n" +
	"5) Check the item immediately after purchase — validity and operability are time‑limited.\n\n" +
	"RU:\n" +
	"1) Запрещено использовать товары из этого магазина для действий, противоречащих законам вашей страны.\n" +
	"2) Покупая товар, вы автоматически соглашаетесь с правилами и берёте полную ответственность на себя.\n" +
	"3) Замена или возврат на баланс возможны только при подтверждённой саппортом недействительности товара. " +
	"Нужны доказательства (скриншоты/видео). Попытка обмана ведёт к отказу и блокировке.\n" +
	"4) Возврат не делается из‑за неправильного использования, отсутствия навыков, блокировок/лимитов " +
	"со стороны сервисов и прокси, изменений их правил/политик, а также если товар частично использован " +
	"или передан третьим лицам.\n" +
	"5) Проверяйте товар сразу после покупки — актуальность и работоспособность ограничены временем.\n"
