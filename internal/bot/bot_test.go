package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"filegate/internal/model"
	"filegate/internal/pkg/cache"
	"filegate/internal/repository"
	"filegate/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const (
	testDomain       = "files.example.com"
	testChat   int64 = 42
)

// fakeAPI records outgoing messages so tests can assert on what the
// user would see.
type fakeAPI struct {
	texts  []string
	nextID int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, m.Text)
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return "", fmt.Errorf("not used")
}

func (f *fakeAPI) lastText() string {
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

// fakeBackend is an in-memory service.Backend. The telegram flavour
// mints message ids and doubles as the source the bot downloads
// incoming attachments from.
type fakeBackend struct {
	typ     model.StorageType
	objects map[string][]byte
	nextMsg int
}

func newFakeBackend(typ model.StorageType) *fakeBackend {
	return &fakeBackend{typ: typ, objects: make(map[string][]byte)}
}

func (f *fakeBackend) Type() model.StorageType { return f.typ }

func (f *fakeBackend) Put(_ context.Context, data []byte, name, _ string) (service.PutResult, error) {
	f.objects[name] = data
	msgID := 0
	if f.typ == model.StorageTelegram {
		f.nextMsg++
		msgID = f.nextMsg
	}
	return service.PutResult{Ref: service.Ref{Key: name, MessageID: msgID}, Size: int64(len(data))}, nil
}

func (f *fakeBackend) Get(_ context.Context, ref service.Ref) ([]byte, error) {
	data, ok := f.objects[ref.Key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", service.ErrNotFound, ref.Key)
	}
	return data, nil
}

func (f *fakeBackend) Delete(_ context.Context, ref service.Ref) error {
	delete(f.objects, ref.Key)
	return nil
}

type botFixture struct {
	bot      *Bot
	api      *fakeAPI
	telegram *fakeBackend
	files    *service.FileService
	cats     *service.CategoryService
	settings repository.UserSettingRepository
}

func newBotFixture(t *testing.T, s3Enabled bool) *botFixture {
	t.Helper()

	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:"}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Category{}, &model.UserSetting{}, &model.File{}))
	require.NoError(t, db.Create(&model.Category{Name: model.DefaultCategoryName}).Error)

	telegram := newFakeBackend(model.StorageTelegram)
	var s3 service.Backend
	if s3Enabled {
		s3 = newFakeBackend(model.StorageS3)
	}
	selector := service.NewSelector(s3, telegram)

	fileRepo := repository.NewFileRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	settingRepo := repository.NewUserSettingRepository(db)
	logger := zap.NewNop().Sugar()

	files := service.NewFileService(fileRepo, catRepo, selector, cache.NewMemory(),
		testDomain, 1024, time.Hour, logger)
	cats := service.NewCategoryService(catRepo, fileRepo, settingRepo, logger)

	api := &fakeAPI{}
	b := New(api, settingRepo, files, cats, selector, cache.NewMemory(),
		s3Enabled, "", time.Millisecond, logger)

	return &botFixture{
		bot: b, api: api, telegram: telegram,
		files: files, cats: cats, settings: settingRepo,
	}
}

func (fx *botFixture) setting(t *testing.T) *model.UserSetting {
	t.Helper()
	setting, err := fx.settings.GetOrCreate(testChat)
	require.NoError(t, err)
	return setting
}

func (fx *botFixture) forceState(t *testing.T, state model.DialogueState, editing *uint) {
	t.Helper()
	setting := fx.setting(t)
	setting.WaitingFor = state
	setting.EditingFileID = editing
	require.NoError(t, fx.settings.Save(setting))
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: testChat},
		Text: text,
	}}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat}},
	}}
}
