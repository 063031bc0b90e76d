package bot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"filegate/internal/model"
	"filegate/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Callback actions carried in inline keyboard buttons.
const (
	cbMenu           = "menu"
	cbSwitchStorage  = "switch_storage"
	cbNewCategory    = "new_category"
	cbListCategories = "list_categories"
	cbRename         = "rename"
	cbDelete         = "delete"
)

func (b *Bot) handleCallback(ctx context.Context, setting *model.UserSetting, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.logger.Debugw("callback ack failed", "error", err)
	}

	// Any menu navigation arriving while a text reply is pending
	// resets the dialogue first, so a stale prompt can never be
	// misinterpreted.
	if setting.WaitingFor != model.StateIdle {
		if !b.clearState(setting) {
			return
		}
	}

	switch cq.Data {
	case cbMenu:
		b.sendMenu(ctx, setting)

	case cbSwitchStorage:
		b.switchStorage(ctx, setting)

	case cbNewCategory:
		if b.setState(setting, model.StateNewCategory, nil) {
			b.reply(setting.ChatID, "Send the name for the new category.")
		}

	case cbListCategories:
		b.listCategories(setting.ChatID)

	case cbRename:
		if b.setState(setting, model.StateRenameTarget, nil) {
			b.reply(setting.ChatID, "Send the URL or file name of the file to rename.")
		}

	case cbDelete:
		if b.setState(setting, model.StateDeleteTarget, nil) {
			b.reply(setting.ChatID, "Send the URL or file name of the file to delete.")
		}

	default:
		b.sendMenu(ctx, setting)
	}
}

func (b *Bot) handleText(ctx context.Context, setting *model.UserSetting, text string) {
	text = strings.TrimSpace(text)

	// /start always lands in Idle with a fresh menu, whatever was pending.
	if strings.HasPrefix(text, "/") {
		if setting.WaitingFor != model.StateIdle && !b.clearState(setting) {
			return
		}
		b.sendMenu(ctx, setting)
		return
	}

	switch setting.WaitingFor {
	case model.StateNewCategory:
		b.consumeNewCategory(ctx, setting, text)

	case model.StateRenameTarget:
		file, err := b.files.Resolve(text)
		if err != nil {
			// stay in state, let the user try another token
			b.reply(setting.ChatID, "No file matches that, send a URL or file name.")
			return
		}
		if b.setState(setting, model.StateNewSuffix, &file.ID) {
			b.reply(setting.ChatID, fmt.Sprintf("Renaming %s — send the new name.", file.FileName))
		}

	case model.StateNewSuffix:
		b.consumeNewSuffix(ctx, setting, text)

	case model.StateDeleteTarget:
		b.consumeDeleteTarget(ctx, setting, text)

	default:
		b.sendMenu(ctx, setting)
	}
}

func (b *Bot) consumeNewCategory(ctx context.Context, setting *model.UserSetting, name string) {
	category, err := b.categories.Create(name)
	if err != nil {
		if errors.Is(err, service.ErrDuplicate) {
			// duplicate is not terminal for the category itself: make
			// the existing one current
			category, err = b.categories.GetByName(strings.TrimSpace(name))
			if err == nil {
				setting.CurrentCategoryID = &category.ID
				if b.clearState(setting) {
					b.reply(setting.ChatID, fmt.Sprintf("Category %q already exists, switched to it.", category.Name))
					b.sendMenu(ctx, setting)
				}
				return
			}
		}
		b.clearState(setting)
		b.reply(setting.ChatID, "Could not create that category: "+userMessage(err))
		return
	}

	setting.CurrentCategoryID = &category.ID
	if b.clearState(setting) {
		b.reply(setting.ChatID, fmt.Sprintf("Category %q created and selected.", category.Name))
		b.sendMenu(ctx, setting)
	}
}

func (b *Bot) consumeNewSuffix(ctx context.Context, setting *model.UserSetting, newName string) {
	if setting.EditingFileID == nil {
		b.clearState(setting)
		b.reply(setting.ChatID, "Lost track of which file to rename, start over from the menu.")
		return
	}

	file, err := b.files.Get(*setting.EditingFileID)
	if err != nil {
		b.clearState(setting)
		b.reply(setting.ChatID, "That file no longer exists.")
		return
	}

	url, err := b.files.Rename(ctx, file, newName)
	b.clearState(setting)
	if err != nil {
		b.reply(setting.ChatID, "Rename failed: "+userMessage(err))
		return
	}
	b.reply(setting.ChatID, "Renamed. New URL:\n"+url)
	b.sendMenu(ctx, setting)
}

func (b *Bot) consumeDeleteTarget(ctx context.Context, setting *model.UserSetting, token string) {
	file, err := b.files.Resolve(token)
	if err != nil {
		b.clearState(setting)
		b.reply(setting.ChatID, "No file matches that.")
		return
	}

	err = b.files.Delete(ctx, file)
	b.clearState(setting)
	if err != nil {
		b.reply(setting.ChatID, "Delete failed: "+userMessage(err))
		return
	}
	b.reply(setting.ChatID, fmt.Sprintf("Deleted %s.", file.FileName))
	b.sendMenu(ctx, setting)
}

// handleMedia uploads an attachment straight away, whatever dialogue
// state is pending.
func (b *Bot) handleMedia(ctx context.Context, setting *model.UserSetting, msg *tgbotapi.Message) {
	fileID, name, mimeType, size := attachmentMeta(msg)
	if fileID == "" {
		return
	}

	if size > b.files.MaxSize() {
		b.reply(setting.ChatID, fmt.Sprintf("That file is larger than the %d MB limit.",
			b.files.MaxSize()/(1024*1024)))
		return
	}

	// pull the bytes out of Telegram before handing them to whichever
	// backend the user selected
	telegram := b.selector.Pick(model.StorageTelegram)
	data, err := telegram.Get(ctx, service.Ref{Key: fileID})
	if err != nil {
		b.reply(setting.ChatID, "Could not download that attachment from Telegram.")
		return
	}

	file, err := b.files.Upload(ctx, data, name, mimeType, setting.StorageType, setting.CurrentCategoryID, setting.ChatID)
	if err != nil {
		b.reply(setting.ChatID, "Upload failed: "+userMessage(err))
		return
	}

	b.reply(setting.ChatID, "Saved:\n"+file.URL(b.files.Domain()))
	b.sendMenu(ctx, setting)
}

func (b *Bot) switchStorage(ctx context.Context, setting *model.UserSetting) {
	if setting.StorageType == model.StorageTelegram {
		if !b.s3Enabled {
			b.reply(setting.ChatID, "Object storage is not configured, staying on Telegram.")
			b.sendMenu(ctx, setting)
			return
		}
		setting.StorageType = model.StorageS3
	} else {
		setting.StorageType = model.StorageTelegram
	}

	if err := b.settings.Save(setting); err != nil {
		b.logger.Errorw("persist storage switch failed", "chat_id", setting.ChatID, "error", err)
		b.reply(setting.ChatID, "Could not switch storage, please try again.")
		return
	}
	b.sendMenu(ctx, setting)
}

func (b *Bot) listCategories(chatID int64) {
	categories, err := b.categories.List()
	if err != nil {
		b.reply(chatID, "Could not load categories.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Categories:\n")
	for _, c := range categories {
		sb.WriteString("• " + c.Name + "\n")
	}
	b.reply(chatID, sb.String())
}

// attachmentMeta normalizes whichever attachment slot is populated
// into (file_id, name, mime, reported size).
func attachmentMeta(msg *tgbotapi.Message) (string, string, string, int64) {
	switch {
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = uuid.NewString() + extFromMime(msg.Document.MimeType)
		}
		return msg.Document.FileID, name, msg.Document.MimeType, int64(msg.Document.FileSize)
	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = uuid.NewString() + ".mp4"
		}
		return msg.Video.FileID, name, msg.Video.MimeType, int64(msg.Video.FileSize)
	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = uuid.NewString() + ".mp3"
		}
		return msg.Audio.FileID, name, msg.Audio.MimeType, int64(msg.Audio.FileSize)
	case msg.Voice != nil:
		return msg.Voice.FileID, uuid.NewString() + ".ogg", "audio/ogg", int64(msg.Voice.FileSize)
	case len(msg.Photo) > 0:
		p := msg.Photo[len(msg.Photo)-1]
		return p.FileID, uuid.NewString() + ".jpg", "image/jpeg", int64(p.FileSize)
	}
	return "", "", "", 0
}

func extFromMime(mimeType string) string {
	if i := strings.LastIndex(mimeType, "/"); i >= 0 && i < len(mimeType)-1 {
		return "." + path.Base(mimeType[i+1:])
	}
	return ".bin"
}

// userMessage strips wrapping detail down to something fit for a chat.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "file not found"
	case errors.Is(err, service.ErrValidation):
		return "invalid input"
	case errors.Is(err, service.ErrDuplicate):
		return "already exists"
	case errors.Is(err, service.ErrUpstream):
		return "storage backend error"
	default:
		return "internal error"
	}
}
