// Package bot drives the Telegram conversation: a per-chat dialogue
// state machine over UserSetting rows, menu rendering, and direct
// media uploads.
package bot

import (
	"context"
	"sync"
	"time"

	"filegate/internal/model"
	"filegate/internal/pkg/cache"
	"filegate/internal/pkg/retry"
	"filegate/internal/repository"
	"filegate/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot handles webhook updates. All state-dependent handling for one
// chat runs under that chat's mutex, so two near-simultaneous messages
// cannot interleave reads and writes of the dialogue state.
type Bot struct {
	api        service.TelegramAPI
	settings   repository.UserSettingRepository
	files      *service.FileService
	categories *service.CategoryService
	selector   *service.Selector
	cache      cache.Cache
	s3Enabled  bool
	noticeURL  string
	menuTTL    time.Duration
	logger     *zap.SugaredLogger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(
	api service.TelegramAPI,
	settings repository.UserSettingRepository,
	files *service.FileService,
	categories *service.CategoryService,
	selector *service.Selector,
	c cache.Cache,
	s3Enabled bool,
	noticeURL string,
	menuTTL time.Duration,
	logger *zap.SugaredLogger,
) *Bot {
	return &Bot{
		api:        api,
		settings:   settings,
		files:      files,
		categories: categories,
		selector:   selector,
		cache:      c,
		s3Enabled:  s3Enabled,
		noticeURL:  noticeURL,
		menuTTL:    menuTTL,
		logger:     logger,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// HandleUpdate is the webhook entry point.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		return
	}

	lock := b.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	setting, err := b.settings.GetOrCreate(chatID)
	if err != nil {
		b.logger.Errorw("load user setting failed", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, setting, update.CallbackQuery)
	case update.Message != nil && hasAttachment(update.Message):
		// media always wins over pending text expectations
		b.handleMedia(ctx, setting, update.Message)
	case update.Message != nil:
		b.handleText(ctx, setting, update.Message.Text)
	}
}

func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[chatID] = lock
	}
	return lock
}

// reply sends plain text with the standard retry policy; failures are
// non-critical side effects, logged and swallowed.
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	err := retry.Do(context.Background(), retry.DefaultAttempts, func() error {
		_, sendErr := b.api.Send(c)
		return sendErr
	})
	if err != nil {
		b.logger.Warnw("telegram send failed", "error", err)
	}
}

// setState persists a transition immediately so the next message from
// the same chat sees up-to-date state.
func (b *Bot) setState(setting *model.UserSetting, state model.DialogueState, editing *uint) bool {
	setting.WaitingFor = state
	setting.EditingFileID = editing
	if err := b.settings.Save(setting); err != nil {
		b.logger.Errorw("persist dialogue state failed", "chat_id", setting.ChatID, "error", err)
		b.reply(setting.ChatID, "Something went wrong, please try again.")
		return false
	}
	return true
}

func (b *Bot) clearState(setting *model.UserSetting) bool {
	return b.setState(setting, model.StateIdle, nil)
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil && update.Message.Chat != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil &&
		update.CallbackQuery.Message.Chat != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func hasAttachment(msg *tgbotapi.Message) bool {
	return msg.Document != nil || len(msg.Photo) > 0 || msg.Video != nil ||
		msg.Audio != nil || msg.Voice != nil
}
