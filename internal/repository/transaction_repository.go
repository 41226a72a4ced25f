package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
)

type TransactionRepository interface {
	Create(ctx context.Context, t model.Transaction) (model.Transaction, error)
	FindByRef(ctx context.Context, ref string) (model.Transaction, error)
	//同一カートのpending行を再利用するための検索
	FindPendingByCartID(ctx context.Context, cartID int64) (model.Transaction, error)
	//再初期化時に金額だけ更新（refは不変）
	UpdateAmount(ctx context.Context, ref string, amount decimal.Decimal, currency string) error
	//pending→completedの前方遷移のみ。completedからは戻らない。
	MarkCompleted(ctx context.Context, ref string) error
}
