package repository

import (
	"context"

	"shoppit/internal/domain/model"
)

type CartRepository interface {
	//cart_codeで取得し、無ければ未払いカートを作成
	GetOrCreateByCode(ctx context.Context, cartCode string) (model.Cart, error)
	FindByCode(ctx context.Context, cartCode string) (model.Cart, error)
	//未払いカートのみ（支払済みカートは不変スナップショット扱い）
	FindUnpaidByCode(ctx context.Context, cartCode string) (model.Cart, error)
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	//paid=falseの行だけをtrueへ。userIDがあれば所有者も束縛する。
	MarkPaid(ctx context.Context, cartID int64, userID *int64) error
	//modified_atを進める（注文履歴の並び順に使う）
	Touch(ctx context.Context, cartID int64) error
}
