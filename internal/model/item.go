package model

// Item: запись о вещи в таблице items.
// ID соответствует неявному rowid SQLite и только читается.
type Item struct {
	ID      int64  `gorm:"column:id;->" json:"id"`
	Name    string `gorm:"column:name" json:"name"`
	Brand   string `gorm:"column:brand" json:"brand"`
	Model   string `gorm:"column:model" json:"model"`
	Note    string `gorm:"column:note" json:"note"`
	Picture []byte `gorm:"column:picture" json:"picture,omitempty"`
}

// TableName фиксирует имя таблицы для gorm.
func (Item) TableName() string { return "items" }
