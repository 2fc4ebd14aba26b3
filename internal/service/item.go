package service

import (
	"StuffTracker/internal/model"
	"StuffTracker/internal/repo"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidItem: запись не прошла проверку.
var ErrInvalidItem = errors.New("invalid item")

// ItemService инкапсулирует бизнес-логику работы с Item.
type ItemService struct {
	repo          repo.ItemRepository
	maxPictureLen int
	logger        *zap.SugaredLogger
}

// NewItemService создаёт сервис. maxPictureKB <= 0 снимает ограничение на размер картинки.
func NewItemService(r repo.ItemRepository, maxPictureKB int, logger *zap.SugaredLogger) *ItemService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ItemService{repo: r, maxPictureLen: maxPictureKB * 1024, logger: logger}
}

// normalize обрезает пробелы и проверяет обязательные поля.
func (s *ItemService) normalize(it *model.Item) error {
	it.Name = strings.TrimSpace(it.Name)
	it.Brand = strings.TrimSpace(it.Brand)
	it.Model = strings.TrimSpace(it.Model)
	if it.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if s.maxPictureLen > 0 && len(it.Picture) > s.maxPictureLen {
		return fmt.Errorf("%w: picture is %d bytes, limit %d", ErrInvalidItem, len(it.Picture), s.maxPictureLen)
	}
	return nil
}

// Add проверяет и сохраняет запись, возвращает её id.
func (s *ItemService) Add(ctx context.Context, it model.Item) (int64, error) {
	if err := s.normalize(&it); err != nil {
		return 0, err
	}
	id, err := s.repo.Add(ctx, &it)
	if err != nil {
		s.logger.Errorw("add item failed", "name", it.Name, "error", err)
		return 0, err
	}
	s.logger.Debugw("item added", "id", id, "name", it.Name)
	return id, nil
}

// List возвращает все записи.
func (s *ItemService) List(ctx context.Context) ([]model.Item, error) {
	return s.repo.List(ctx)
}

// Get возвращает запись по id.
func (s *ItemService) Get(ctx context.Context, id int64) (*model.Item, error) {
	return s.repo.Get(ctx, id)
}

// Update проверяет и перезаписывает запись.
func (s *ItemService) Update(ctx context.Context, it model.Item) error {
	if it.ID <= 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if err := s.normalize(&it); err != nil {
		return err
	}
	return s.repo.Update(ctx, &it)
}

// Delete удаляет запись по id.
func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debugw("item deleted", "id", id)
	return nil
}

// Count возвращает число записей.
func (s *ItemService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Summary: представление записи без бинарной картинки (для списков).
func Summary(it *model.Item) map[string]any {
	return map[string]any{
		"id":           it.ID,
		"name":         it.Name,
		"brand":        it.Brand,
		"model":        it.Model,
		"note":         it.Note,
		"has_picture":  len(it.Picture) > 0,
		"picture_size": len(it.Picture),
	}
}
