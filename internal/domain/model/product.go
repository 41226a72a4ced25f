package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品カテゴリ
type ProductCategory string

const (
	CategoryElectronics ProductCategory = "Electronics"
	CategorySports      ProductCategory = "Sports"
	CategoryClothing    ProductCategory = "Clothing"
)

// slugは一度設定したら変更しない
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(50);not null" json:"name"`
	Slug        string          `gorm:"type:varchar(60);not null;uniqueIndex" json:"slug"`
	Image       string          `gorm:"type:varchar(255)" json:"image"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    ProductCategory `gorm:"type:varchar(15);index" json:"category"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
