package model

import "time"

// CartCodeMaxLen はcart_codeの最大長（外部生成の不透明ID）
const CartCodeMaxLen = 11

// paidはfalse→trueの一方向のみ
type Cart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartCode  string    `gorm:"type:varchar(11);not null;uniqueIndex" json:"cart_code"`
	UserID    *int64    `gorm:"index" json:"user_id,omitempty"`
	Paid      bool      `gorm:"not null;default:false;index" json:"paid"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"modified_at"`
}
