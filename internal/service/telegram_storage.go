package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"filegate/internal/model"
	"filegate/internal/pkg/retry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramAPI is the slice of *tgbotapi.BotAPI the storage backend
// needs; kept narrow so tests can fake it.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// TelegramStorage stores file bytes as attachments on messages posted
// to a fixed channel. The backend ref is the Telegram file_id plus the
// channel message id.
type TelegramStorage struct {
	api       TelegramAPI
	channelID int64
	http      *http.Client
	logger    *zap.SugaredLogger
}

func NewTelegramStorage(api TelegramAPI, channelID int64, logger *zap.SugaredLogger) *TelegramStorage {
	return &TelegramStorage{
		api:       api,
		channelID: channelID,
		http:      http.DefaultClient,
		logger:    logger,
	}
}

func (t *TelegramStorage) Type() model.StorageType {
	return model.StorageTelegram
}

// Put classifies content by MIME main type to pick the most natural
// message kind; if the API rejects that kind, a plain document send is
// attempted exactly once before the upload fails.
func (t *TelegramStorage) Put(ctx context.Context, data []byte, name, mimeType string) (PutResult, error) {
	payload := tgbotapi.FileBytes{Name: name, Bytes: data}

	msg, err := t.sendWithRetry(ctx, t.chattableFor(payload, mimeType))
	if err != nil && !isDocumentChattable(mimeType) {
		t.logger.Warnw("typed telegram upload rejected, retrying as document",
			"name", name, "mime", mimeType, "error", err)
		msg, err = t.sendWithRetry(ctx, tgbotapi.NewDocument(t.channelID, payload))
	}
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: telegram upload %s: %v", ErrUpstream, name, err)
	}

	fileID, size := extractAttachment(&msg)
	if fileID == "" {
		return PutResult{}, fmt.Errorf("%w: telegram response carries no attachment for %s", ErrUpstream, name)
	}
	if size == 0 {
		size = int64(len(data))
	}

	return PutResult{
		Ref:  Ref{Key: fileID, MessageID: msg.MessageID},
		Size: size,
	}, nil
}

// Get resolves a short-lived direct download URL per access. Telegram
// file URLs expire, so they are never cached here.
func (t *TelegramStorage) Get(ctx context.Context, ref Ref) ([]byte, error) {
	directURL, err := t.api.GetFileDirectURL(ref.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram file %s", ErrNotFound, ref.Key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, directURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram download request: %v", ErrUpstream, err)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram download: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: telegram download status %d", ErrUpstream, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram download read: %v", ErrUpstream, err)
	}
	return data, nil
}

// Delete removes the channel message. A message that is already gone
// counts as success.
func (t *TelegramStorage) Delete(ctx context.Context, ref Ref) error {
	if ref.MessageID == 0 {
		return nil
	}
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(t.channelID, ref.MessageID))
	if err != nil {
		if strings.Contains(err.Error(), "message to delete not found") {
			return nil
		}
		t.logger.Warnw("telegram delete failed", "message_id", ref.MessageID, "error", err)
		return fmt.Errorf("%w: telegram delete message %d: %v", ErrUpstream, ref.MessageID, err)
	}
	return nil
}

func (t *TelegramStorage) chattableFor(payload tgbotapi.FileBytes, mimeType string) tgbotapi.Chattable {
	switch mainType(mimeType) {
	case "image":
		return tgbotapi.NewPhoto(t.channelID, payload)
	case "video":
		return tgbotapi.NewVideo(t.channelID, payload)
	case "audio":
		return tgbotapi.NewAudio(t.channelID, payload)
	default:
		return tgbotapi.NewDocument(t.channelID, payload)
	}
}

// sendWithRetry retries transient / rate-limited sends with capped
// exponential backoff. 4xx API rejections other than 429 are final and
// fail immediately.
func (t *TelegramStorage) sendWithRetry(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	err := retry.Do(ctx, retry.DefaultAttempts, func() error {
		var sendErr error
		msg, sendErr = t.api.Send(c)
		var apiErr *tgbotapi.Error
		if errors.As(sendErr, &apiErr) &&
			apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
			return retry.Permanent(sendErr)
		}
		return sendErr
	})
	return msg, err
}

func mainType(mimeType string) string {
	if i := strings.Index(mimeType, "/"); i > 0 {
		return mimeType[:i]
	}
	return mimeType
}

func isDocumentChattable(mimeType string) bool {
	switch mainType(mimeType) {
	case "image", "video", "audio":
		return false
	}
	return true
}

// extractAttachment pulls the file_id and reported size out of
// whichever attachment slot Telegram populated.
func extractAttachment(msg *tgbotapi.Message) (string, int64) {
	switch {
	case msg.Document != nil:
		return msg.Document.FileID, int64(msg.Document.FileSize)
	case msg.Video != nil:
		return msg.Video.FileID, int64(msg.Video.FileSize)
	case msg.Audio != nil:
		return msg.Audio.FileID, int64(msg.Audio.FileSize)
	case len(msg.Photo) > 0:
		// the last PhotoSize is the largest rendition
		p := msg.Photo[len(msg.Photo)-1]
		return p.FileID, int64(p.FileSize)
	}
	return "", 0
}
