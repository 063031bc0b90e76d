package service

import (
	"errors"
	"fmt"
	"strings"

	"filegate/internal/model"
	"filegate/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryService struct {
	categories repository.CategoryRepository
	files      repository.FileRepository
	settings   repository.UserSettingRepository
	logger     *zap.SugaredLogger
}

func NewCategoryService(
	categories repository.CategoryRepository,
	files repository.FileRepository,
	settings repository.UserSettingRepository,
	logger *zap.SugaredLogger,
) *CategoryService {
	return &CategoryService{
		categories: categories,
		files:      files,
		settings:   settings,
		logger:     logger,
	}
}

func (s *CategoryService) Create(name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty category name", ErrValidation)
	}

	exists, err := s.categories.NameExists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: category %q", ErrDuplicate, name)
	}

	category := &model.Category{Name: name}
	if err := s.categories.Create(category); err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return category, nil
}

// Delete removes a non-default category after re-parenting its files
// and user pointers to the default category, so no row is ever left
// dangling.
func (s *CategoryService) Delete(id uint) error {
	category, err := s.categories.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: category id %d", ErrNotFound, id)
		}
		return err
	}

	if category.IsDefault() {
		return fmt.Errorf("%w: the default category cannot be deleted", ErrValidation)
	}

	def, err := s.categories.FindDefault()
	if err != nil {
		return fmt.Errorf("default category lookup: %w", err)
	}

	if err := s.files.ReattachCategory(category.ID, def.ID); err != nil {
		return fmt.Errorf("reattach files of category %d: %w", id, err)
	}
	if err := s.settings.ResetCategory(category.ID, def.ID); err != nil {
		return fmt.Errorf("reset user categories of %d: %w", id, err)
	}

	if err := s.categories.Delete(category.ID); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}

	s.logger.Infow("category deleted", "id", id, "name", category.Name)
	return nil
}

func (s *CategoryService) List() ([]model.Category, error) {
	return s.categories.List()
}

func (s *CategoryService) Get(id uint) (*model.Category, error) {
	category, err := s.categories.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category id %d", ErrNotFound, id)
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) GetByName(name string) (*model.Category, error) {
	category, err := s.categories.FindByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %q", ErrNotFound, name)
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Default() (*model.Category, error) {
	return s.categories.FindDefault()
}
