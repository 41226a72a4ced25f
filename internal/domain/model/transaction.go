package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 固定の税額。取引金額 = カート合計 + TaxAmount。
var TaxAmount = decimal.RequireFromString("4.00")

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// 決済取引。refはコールバック照合の結合キー。
// amountは作成時点のカート合計+税で固定（以後のカート変更に追随しない）。
type Transaction struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Ref       string            `gorm:"type:varchar(255);not null;uniqueIndex" json:"ref"`
	CartID    int64             `gorm:"not null;index" json:"cart_id"`
	Amount    decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency  string            `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	Status    TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	UserID    int64             `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;autoUpdateTime" json:"modified_at"`
}
