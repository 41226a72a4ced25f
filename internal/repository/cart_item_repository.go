package repository

import (
	"context"
	"time"

	"shoppit/internal/domain/model"
)

// 支払済みカートの明細（注文履歴用）
type PaidCartItem struct {
	Item      model.CartItem
	Product   model.Product
	OrderID   string
	OrderDate time.Time
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// (cart_id, product_id)の一意制約でinsert-or-increment。
	// 新規なら quantity=1、既存なら quantity+1 の行を返す。
	AddOrIncrement(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) (model.CartItem, error)
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	ExistsByCartAndProduct(ctx context.Context, cartID int64, productID int64) (bool, error)
	//支払済みカートの明細をカート更新日の新しい順で返す
	ListPaidByUserID(ctx context.Context, userID int64, limit int) ([]PaidCartItem, error)
}
