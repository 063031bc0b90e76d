package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"filegate/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const noticeTTL = 10 * time.Minute

// sendMenu renders the status panel plus the action keyboard. The
// status text is memoized per chat+storage so repeated navigation does
// not re-run the aggregate queries.
func (b *Bot) sendMenu(ctx context.Context, setting *model.UserSetting) {
	text := b.menuText(ctx, setting)

	msg := tgbotapi.NewMessage(setting.ChatID, text)
	msg.ReplyMarkup = menuKeyboard()
	b.send(msg)
}

func (b *Bot) menuText(ctx context.Context, setting *model.UserSetting) string {
	key := fmt.Sprintf("menu:%d:%s", setting.ChatID, setting.StorageType)
	if cached, ok := b.cache.Get(ctx, key); ok {
		return string(cached)
	}

	categoryName := model.DefaultCategoryName
	if setting.CurrentCategoryID != nil {
		if c, err := b.categories.Get(*setting.CurrentCategoryID); err == nil {
			categoryName = c.Name
		}
	}

	count, size, err := b.files.Stats(setting.ChatID)
	if err != nil {
		b.logger.Warnw("stats query failed", "chat_id", setting.ChatID, "error", err)
	}

	var sb strings.Builder
	sb.WriteString("File hosting panel\n")
	sb.WriteString(fmt.Sprintf("Storage: %s\n", setting.StorageType))
	sb.WriteString(fmt.Sprintf("Category: %s\n", categoryName))
	sb.WriteString(fmt.Sprintf("Files: %d (%s)\n", count, humanSize(size)))
	if notice := b.notice(ctx); notice != "" {
		sb.WriteString("\n" + notice + "\n")
	}
	sb.WriteString("\nSend any file to upload it.")

	text := sb.String()
	if err := b.cache.Set(ctx, key, []byte(text), b.menuTTL); err != nil {
		b.logger.Debugw("menu cache set failed", "error", err)
	}
	return text
}

// notice fetches the externally hosted notice of the day, cached so
// the remote endpoint is hit at most every few minutes.
func (b *Bot) notice(ctx context.Context) string {
	if b.noticeURL == "" {
		return ""
	}
	if cached, ok := b.cache.Get(ctx, "notice"); ok {
		return string(cached)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.noticeURL, nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		b.logger.Debugw("notice fetch failed", "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	notice := strings.TrimSpace(string(body))
	if err := b.cache.Set(ctx, "notice", []byte(notice), noticeTTL); err != nil {
		b.logger.Debugw("notice cache set failed", "error", err)
	}
	return notice
}

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Switch storage", cbSwitchStorage),
			tgbotapi.NewInlineKeyboardButtonData("Categories", cbListCategories),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("New category", cbNewCategory),
			tgbotapi.NewInlineKeyboardButtonData("Rename file", cbRename),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete file", cbDelete),
			tgbotapi.NewInlineKeyboardButtonData("Refresh", cbMenu),
		),
	)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
