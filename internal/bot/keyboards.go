package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nofumex/onion-shop/internal/models"
)

const (
	btnProducts = "🛍️ Products"
	btnStock    = "📦 Stock"
	btnProfile  = "👤 Profile"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProducts),
			tgbotapi.NewKeyboardButton(btnStock),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProfile),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func subscribeKeyboard(channelUsername string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Subscribe", "https://t.me/"+channelUsername),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Check subscription", "sub:check"),
		),
	)
}

func sectionsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧾 Accounts", "sec:accounts"),
			tgbotapi.NewInlineKeyboardButtonData("🧰 Proxies", "sec:proxies"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ Back", "back:main"),
		),
	)
}

func accountsKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range models.Accounts {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Name, "cat:"+c.Folder))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀ Back", "sec:root"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func proxiesKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range models.Proxies {
		label := fmt.Sprintf("%s %s", c.Name, c.Flag)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "cat:"+c.Folder),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀ Back", "sec:root"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemKeyboard(c models.Category, inStock bool) tgbotapi.InlineKeyboardMarkup {
	backTarget := "sec:accounts"
	if c.Kind == models.KindProxy {
		backTarget = "sec:proxies"
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if inStock {
		label := fmt.Sprintf("Account | %d$", c.Price)
		if c.Kind == models.KindProxy {
			label = fmt.Sprintf("SOCKS5 | %d$", c.Price)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "buy:"+c.Folder),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀ Back", backTarget),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func quantityKeyboard(c models.Category) tgbotapi.InlineKeyboardMarkup {
	var qtyRow []tgbotapi.InlineKeyboardButton
	for qty := 1; qty <= 5; qty++ {
		qtyRow = append(qtyRow, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", qty),
			fmt.Sprintf("qty:%s:%d", c.Folder, qty),
		))
	}

	backTarget := "sec:accounts"
	if c.Kind == models.KindProxy {
		backTarget = "sec:proxies"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		qtyRow,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ Back", backTarget),
		),
	)
}

func profileKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Top up", "topup")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Rules", "rules")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Help", "help")),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", "adm:stats")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💰 Adjust balance", "adm:adjust")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏆 Top buyers", "adm:top")),
	)
}

func payKeyboard(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Proceed to payment", url),
		),
	)
}
