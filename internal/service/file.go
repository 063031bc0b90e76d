package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"filegate/internal/model"
	"filegate/internal/pkg/cache"
	"filegate/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileService is the file registry: it owns File rows and orchestrates
// backend writes around them.
type FileService struct {
	files      repository.FileRepository
	categories repository.CategoryRepository
	selector   *Selector
	cache      cache.Cache
	domain     string
	maxSize    int64
	fileTTL    time.Duration
	logger     *zap.SugaredLogger
}

func NewFileService(
	files repository.FileRepository,
	categories repository.CategoryRepository,
	selector *Selector,
	c cache.Cache,
	domain string,
	maxSize int64,
	fileTTL time.Duration,
	logger *zap.SugaredLogger,
) *FileService {
	return &FileService{
		files:      files,
		categories: categories,
		selector:   selector,
		cache:      c,
		domain:     domain,
		maxSize:    maxSize,
		fileTTL:    fileTTL,
		logger:     logger,
	}
}

func (s *FileService) Domain() string { return s.domain }

func (s *FileService) MaxSize() int64 { return s.maxSize }

// Upload writes the bytes to the chosen backend and registers the row.
// The row is only created after the backend write succeeds.
func (s *FileService) Upload(ctx context.Context, data []byte, name, mimeType string, storageType model.StorageType, categoryID *uint, chatID int64) (*model.File, error) {
	name = SanitizeFileName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty file name", ErrValidation)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxSize)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	backend := s.selector.Pick(storageType)

	res, err := backend.Put(ctx, data, name, mimeType)
	if err != nil {
		return nil, err
	}

	if categoryID == nil {
		if def, derr := s.categories.FindDefault(); derr == nil {
			categoryID = &def.ID
		}
	}

	file := &model.File{
		FileName:    name,
		FileSize:    res.Size,
		MimeType:    mimeType,
		StorageType: backend.Type(),
		BackendRef:  res.Ref.Key,
		MessageRef:  res.Ref.MessageID,
		CategoryID:  categoryID,
		ChatID:      chatID,
	}
	if err := s.files.Create(file); err != nil {
		return nil, fmt.Errorf("register file %s: %w", name, err)
	}
	return file, nil
}

// Resolve maps a user-supplied token (URL, raw backend ref or file
// name) to a File row. Precedence: exact URL, backend ref, file name
// (most recent wins).
func (s *FileService) Resolve(token string) (*model.File, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrValidation)
	}

	if name, ok := s.nameFromURL(token); ok {
		if file, err := s.files.FindByName(name); err == nil {
			return file, nil
		}
	}

	if file, err := s.files.FindByBackendRef(token); err == nil {
		return file, nil
	}

	file, err := s.files.FindByName(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file %q", ErrNotFound, token)
		}
		return nil, err
	}
	return file, nil
}

// Serve returns the bytes and MIME type for a public path segment.
// Resolved streams are memoized for fileTTL; Telegram direct URLs are
// re-resolved on every cache miss because they expire.
func (s *FileService) Serve(ctx context.Context, name string) ([]byte, string, error) {
	file, err := s.Resolve(name)
	if err != nil {
		return nil, "", err
	}

	cacheKey := serveCacheKey(file.FileName)
	if data, ok := s.cache.Get(ctx, cacheKey); ok {
		return data, file.MimeType, nil
	}

	backend, err := s.selector.ForFile(file)
	if err != nil {
		return nil, "", err
	}

	data, err := backend.Get(ctx, Ref{Key: file.BackendRef, MessageID: file.MessageRef})
	if err != nil {
		return nil, "", err
	}

	if cerr := s.cache.Set(ctx, cacheKey, data, s.fileTTL); cerr != nil {
		s.logger.Warnw("file cache set failed", "name", file.FileName, "error", cerr)
	}
	return data, file.MimeType, nil
}

// Rename gives a file a new base name. The bytes are re-homed first
// (S3: copy, Telegram: download + re-upload), then the row is flipped
// to the new pointers in one statement, then the old content is
// deleted best-effort. A failed old-content delete leaves orphaned
// garbage, which is logged and tolerated; the row never points at a
// ref that no longer resolves.
func (s *FileService) Rename(ctx context.Context, file *model.File, newBase string) (string, error) {
	newName := SanitizeFileName(newBase)
	if newName == "" {
		return "", fmt.Errorf("%w: empty new name", ErrValidation)
	}
	if path.Ext(newName) == "" {
		newName += path.Ext(file.FileName)
	}
	if newName == file.FileName {
		return file.URL(s.domain), nil
	}

	oldRef := Ref{Key: file.BackendRef, MessageID: file.MessageRef}

	backend, err := s.selector.ForFile(file)
	if err != nil {
		return "", err
	}

	// re-home the bytes first: server-side copy when the backend can,
	// download + re-upload otherwise
	var newRef Ref
	if copier, ok := backend.(Copier); ok {
		if err := copier.Copy(ctx, oldRef.Key, newName); err != nil {
			return "", err
		}
		newRef = Ref{Key: newName}
	} else {
		data, err := backend.Get(ctx, oldRef)
		if err != nil {
			return "", err
		}
		res, err := backend.Put(ctx, data, newName, file.MimeType)
		if err != nil {
			return "", err
		}
		newRef = res.Ref
	}

	if err := s.files.UpdateRename(file.ID, newName, newRef.Key, newRef.MessageID); err != nil {
		return "", fmt.Errorf("rename row update %d: %w", file.ID, err)
	}

	if err := backend.Delete(ctx, oldRef); err != nil {
		s.logger.Warnw("rename left orphaned content", "old_ref", oldRef.Key, "error", err)
	}

	s.invalidate(ctx, file.FileName)
	s.invalidate(ctx, newName)

	file.FileName = newName
	file.BackendRef = newRef.Key
	file.MessageRef = newRef.MessageID
	return file.URL(s.domain), nil
}

// Delete removes backend content best-effort, then the row. Deleting a
// file that is already gone reports ErrNotFound, never panics.
func (s *FileService) Delete(ctx context.Context, file *model.File) error {
	if backend, err := s.selector.ForFile(file); err == nil {
		if derr := backend.Delete(ctx, Ref{Key: file.BackendRef, MessageID: file.MessageRef}); derr != nil {
			s.logger.Warnw("backend delete failed, removing row anyway",
				"file", file.FileName, "error", derr)
		}
	}

	if err := s.files.Delete(file.ID); err != nil {
		return fmt.Errorf("delete file row %d: %w", file.ID, err)
	}

	s.invalidate(ctx, file.FileName)
	return nil
}

// Get loads a file row by id.
func (s *FileService) Get(id uint) (*model.File, error) {
	file, err := s.files.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file id %d", ErrNotFound, id)
		}
		return nil, err
	}
	return file, nil
}

// DeleteByID resolves then deletes; the id variant the admin page uses.
func (s *FileService) DeleteByID(ctx context.Context, id uint) error {
	file, err := s.files.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: file id %d", ErrNotFound, id)
		}
		return err
	}
	return s.Delete(ctx, file)
}

// BulkResult reports per-item outcomes of a bulk operation; the batch
// itself never fails as a whole.
type BulkResult struct {
	OK     int
	Failed int
}

func (s *FileService) BulkDelete(ctx context.Context, urls []string) BulkResult {
	var res BulkResult
	for _, u := range urls {
		file, err := s.Resolve(u)
		if err != nil {
			res.Failed++
			continue
		}
		if err := s.Delete(ctx, file); err != nil {
			res.Failed++
			continue
		}
		res.OK++
	}
	return res
}

func (s *FileService) BulkSetRemark(ctx context.Context, urls []string, remark string) BulkResult {
	var res BulkResult
	for _, u := range urls {
		file, err := s.Resolve(u)
		if err != nil {
			res.Failed++
			continue
		}
		if err := s.files.UpdateRemark(file.ID, remark); err != nil {
			res.Failed++
			continue
		}
		res.OK++
	}
	return res
}

func (s *FileService) BulkSetCategory(ctx context.Context, urls []string, categoryID uint) BulkResult {
	var res BulkResult
	if _, err := s.categories.FindByID(categoryID); err != nil {
		res.Failed = len(urls)
		return res
	}
	for _, u := range urls {
		file, err := s.Resolve(u)
		if err != nil {
			res.Failed++
			continue
		}
		if err := s.files.UpdateCategory(file.ID, &categoryID); err != nil {
			res.Failed++
			continue
		}
		res.OK++
	}
	return res
}

func (s *FileService) Search(query string) ([]model.File, error) {
	return s.files.Search(query)
}

func (s *FileService) List(categoryID *uint) ([]model.File, error) {
	return s.files.List(categoryID)
}

func (s *FileService) Stats(chatID int64) (int64, int64, error) {
	return s.files.StatsByChat(chatID)
}

func (s *FileService) invalidate(ctx context.Context, name string) {
	if err := s.cache.Delete(ctx, serveCacheKey(name)); err != nil {
		s.logger.Warnw("file cache invalidation failed", "name", name, "error", err)
	}
}

func (s *FileService) nameFromURL(token string) (string, bool) {
	u, err := url.Parse(token)
	if err != nil || u.Host == "" {
		return "", false
	}
	if !strings.EqualFold(u.Host, s.domain) {
		return "", false
	}
	name := strings.TrimPrefix(u.Path, "/")
	return name, name != ""
}

func serveCacheKey(name string) string {
	return "file:" + name
}

// SanitizeFileName reduces any user-supplied name to a safe basename.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
