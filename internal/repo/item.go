package repo

import (
	"StuffTracker/internal/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// ErrNotFound: запись с указанным id отсутствует.
var ErrNotFound = errors.New("item not found")

// Opener отдаёт текущий хэндл БД. Хэндл может смениться после импорта файла.
type Opener interface {
	Open(ctx context.Context) (*sql.DB, error)
}

// ItemRepository определяет контракт доступа к таблице items.
type ItemRepository interface {
	// Add вставляет запись и возвращает её rowid.
	Add(ctx context.Context, it *model.Item) (int64, error)
	// List возвращает все записи в порядке вставки.
	List(ctx context.Context) ([]model.Item, error)
	// Get возвращает запись по rowid.
	Get(ctx context.Context, id int64) (*model.Item, error)
	// Update перезаписывает все поля записи it.ID.
	Update(ctx context.Context, it *model.Item) error
	// Delete удаляет запись по rowid.
	Delete(ctx context.Context, id int64) error
	// Count возвращает число записей.
	Count(ctx context.Context) (int64, error)
}

const itemColumns = `rowid AS id, IFNULL(name, '') AS name, IFNULL(brand, '') AS brand,
 IFNULL(model, '') AS model, IFNULL(note, '') AS note, picture`

type itemRepo struct {
	opener Opener

	mu   sync.Mutex
	conn *sql.DB
	db   *gorm.DB
}

// NewItemRepository создаёт реализацию репозитория поверх opener.
func NewItemRepository(opener Opener) ItemRepository {
	return &itemRepo{opener: opener}
}

// gormDB возвращает gorm-сессию для актуального хэндла,
// пересоздавая обёртку, если хэндл сменился.
func (r *itemRepo) gormDB(ctx context.Context) (*gorm.DB, error) {
	conn, err := r.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn != r.conn || r.db == nil {
		db, err := InitDB(conn)
		if err != nil {
			return nil, fmt.Errorf("init gorm: %w", err)
		}
		r.conn, r.db = conn, db
	}
	return r.db.WithContext(ctx), nil
}

func (r *itemRepo) Add(ctx context.Context, it *model.Item) (int64, error) {
	db, err := r.gormDB(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.Raw(`INSERT INTO items(name, brand, model, note, picture) VALUES(?, ?, ?, ?, ?) RETURNING rowid`,
		it.Name, it.Brand, it.Model, it.Note, it.Picture).Scan(&id).Error
	if err != nil {
		return 0, err
	}
	it.ID = id
	return id, nil
}

func (r *itemRepo) List(ctx context.Context) ([]model.Item, error) {
	db, err := r.gormDB(ctx)
	if err != nil {
		return nil, err
	}
	res := []model.Item{}
	if err := db.Table("items").Select(itemColumns).Order("rowid").Scan(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (r *itemRepo) Get(ctx context.Context, id int64) (*model.Item, error) {
	db, err := r.gormDB(ctx)
	if err != nil {
		return nil, err
	}
	var it model.Item
	err = db.Table("items").Select(itemColumns).Where("rowid = ?", id).Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) Update(ctx context.Context, it *model.Item) error {
	db, err := r.gormDB(ctx)
	if err != nil {
		return err
	}
	tx := db.Table("items").Where("rowid = ?", it.ID).Updates(map[string]any{
		"name":    it.Name,
		"brand":   it.Brand,
		"model":   it.Model,
		"note":    it.Note,
		"picture": it.Picture,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: id=%d", ErrNotFound, it.ID)
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	db, err := r.gormDB(ctx)
	if err != nil {
		return err
	}
	tx := db.Exec(`DELETE FROM items WHERE rowid = ?`, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	return nil
}

func (r *itemRepo) Count(ctx context.Context) (int64, error) {
	db, err := r.gormDB(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Table("items").Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
