package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filegate/internal/bot"
	"filegate/internal/config"
	"filegate/internal/model"
	"filegate/internal/pkg/cache"
	"filegate/internal/pkg/httputils"
	"filegate/internal/repository"
	"filegate/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const (
	testDomain        = "files.example.com"
	testMaxSize       = int64(1024)
	testWebhookSecret = "hook-secret"
)

type fakeAPI struct {
	sent int
}

func (f *fakeAPI) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent++
	return tgbotapi.Message{MessageID: f.sent}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return "", fmt.Errorf("not used")
}

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

type serverFixture struct {
	router   *mux.Router
	cfg      *config.Config
	api      *fakeAPI
	telegram *fakeBackend
	files    *service.FileService
	cats     *service.CategoryService
}

// newServerFixture wires the real routing tree over in-memory storage,
// the same shape the app assembles at startup minus the static pages.
func newServerFixture(t *testing.T, authEnabled bool) *serverFixture {
	t.Helper()

	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:"}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Category{}, &model.UserSetting{}, &model.File{}))
	require.NoError(t, db.Create(&model.Category{Name: model.DefaultCategoryName}).Error)

	telegram := newFakeBackend(model.StorageTelegram)
	selector := service.NewSelector(nil, telegram)

	fileRepo := repository.NewFileRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	settingRepo := repository.NewUserSettingRepository(db)
	logger := zap.NewNop().Sugar()

	files := service.NewFileService(fileRepo, catRepo, selector, cache.NewMemory(),
		testDomain, testMaxSize, time.Hour, logger)
	cats := service.NewCategoryService(catRepo, fileRepo, settingRepo, logger)

	api := &fakeAPI{}
	b := bot.New(api, settingRepo, files, cats, selector, cache.NewMemory(),
		false, "", time.Millisecond, logger)

	cfg := &config.Config{
		Domain:       testDomain,
		AuthEnabled:  authEnabled,
		AuthUser:     "admin",
		AuthPassword: "pa55word",
		AuthSecret:   "test-secret",
	}

	router := mux.NewRouter()
	router.Use(WithAuth(cfg))
	NewLoginHandler(cfg, logger).RegisterRoutes(router)
	fileHandler := NewFileHandler(files, cats, logger)
	fileHandler.RegisterRoutes(router)
	NewCategoryHandler(cats, logger).RegisterRoutes(router)
	NewWebhookHandler(b, testWebhookSecret, logger).RegisterRoutes(router)
	fileHandler.RegisterCatchAll(router)

	return &serverFixture{
		router: router, cfg: cfg, api: api,
		telegram: telegram, files: files, cats: cats,
	}
}

func (fx *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func getRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeStatus(t *testing.T, body io.Reader) httputils.StatusResponse {
	t.Helper()
	var res httputils.StatusResponse
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	return res
}
