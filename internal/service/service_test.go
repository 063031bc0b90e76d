package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"filegate/internal/model"
	"filegate/internal/pkg/cache"
	"filegate/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const testDomain = "files.example.com"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:"}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Category{}, &model.UserSetting{}, &model.File{}))
	require.NoError(t, db.Create(&model.Category{Name: model.DefaultCategoryName}).Error)
	return db
}

// fakeBackend keeps objects in a map. For the telegram flavour every
// Put also mints a message id, mimicking the channel post.
type fakeBackend struct {
	typ     model.StorageType
	objects map[string][]byte
	puts    int
	nextMsg int
	failPut bool
}

func newFakeBackend(typ model.StorageType) *fakeBackend {
	return &fakeBackend{typ: typ, objects: make(map[string][]byte)}
}

func (f *fakeBackend) Type() model.StorageType { return f.typ }

func (f *fakeBackend) Put(_ context.Context, data []byte, name, _ string) (PutResult, error) {
	if f.failPut {
		return PutResult{}, fmt.Errorf("%w: put refused", ErrUpstream)
	}
	f.puts++
	f.objects[name] = data
	msgID := 0
	if f.typ == model.StorageTelegram {
		f.nextMsg++
		msgID = f.nextMsg
	}
	return PutResult{Ref: Ref{Key: name, MessageID: msgID}, Size: int64(len(data))}, nil
}

func (f *fakeBackend) Get(_ context.Context, ref Ref) ([]byte, error) {
	data, ok := f.objects[ref.Key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", ErrNotFound, ref.Key)
	}
	return data, nil
}

func (f *fakeBackend) Delete(_ context.Context, ref Ref) error {
	delete(f.objects, ref.Key)
	return nil
}

// copierBackend adds server-side copy, mimicking the object store.
type copierBackend struct {
	*fakeBackend
	copies int
}

func (c *copierBackend) Copy(_ context.Context, oldKey, newKey string) error {
	data, ok := c.objects[oldKey]
	if !ok {
		return fmt.Errorf("%w: object %s", ErrNotFound, oldKey)
	}
	c.objects[newKey] = data
	c.copies++
	return nil
}

type fixture struct {
	db       *gorm.DB
	telegram *fakeBackend
	s3       *fakeBackend
	files    *FileService
	cats     *CategoryService
	settings repository.UserSettingRepository
}

func newFixture(t *testing.T, maxSize int64) *fixture {
	t.Helper()
	db := newTestDB(t)
	telegram := newFakeBackend(model.StorageTelegram)
	s3 := newFakeBackend(model.StorageS3)
	selector := NewSelector(s3, telegram)

	fileRepo := repository.NewFileRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	settingRepo := repository.NewUserSettingRepository(db)
	logger := zap.NewNop().Sugar()

	files := NewFileService(fileRepo, catRepo, selector, cache.NewMemory(),
		testDomain, maxSize, time.Hour, logger)
	cats := NewCategoryService(catRepo, fileRepo, settingRepo, logger)

	return &fixture{
		db: db, telegram: telegram, s3: s3,
		files: files, cats: cats, settings: settingRepo,
	}
}
