package usecase

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
	repo "shoppit/internal/repository"
)

// CartUsecase はカートと明細のライフサイクルを扱う。
// 支払済みカートは不変スナップショット扱いで、ここからは触らない。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// 明細＋商品＋小計。Messageは追加成功時のみ入る。
type CartItemOutput struct {
	ID       int64           `json:"id"`
	Quantity int64           `json:"quantity"`
	Product  model.Product   `json:"product"`
	Total    decimal.Decimal `json:"total"`
	Message  string          `json:"message,omitempty"`
}

type CartOutput struct {
	ID         int64            `json:"id"`
	CartCode   string           `json:"cart_code"`
	Items      []CartItemOutput `json:"items"`
	SumTotal   decimal.Decimal  `json:"sum_total"`
	NumOfItems int64            `json:"num_of_items"`
}

// カート不在でも200で返すための形（num_of_items=0 + message）
type CartStatsOutput struct {
	ID         *int64 `json:"id"`
	CartCode   string `json:"cart_code"`
	NumOfItems int64  `json:"num_of_items"`
	Message    string `json:"message,omitempty"`
}

func validCartCode(cartCode string) bool {
	code := strings.TrimSpace(cartCode)
	return code != "" && len(code) <= model.CartCodeMaxLen
}

// AddItem はカートをget-or-createし、(cart, product)の明細を
// insert-or-incrementで1行に保つ。商品が無ければ404。
func (u *CartUsecase) AddItem(ctx context.Context, cartCode string, productID int64) (CartItemOutput, error) {
	if !validCartCode(cartCode) {
		return CartItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid cart_code")
	}
	if productID <= 0 {
		return CartItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return CartItemOutput{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart, err := u.cartRepo.GetOrCreateByCode(ctx, strings.TrimSpace(cartCode))
	if err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	item, err := u.cartItemRepo.AddOrIncrement(ctx, cart.ID, p.ID)
	if err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//modified_atを進める（注文履歴の並び順に使う）
	if err := u.cartRepo.Touch(ctx, cart.ID); err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := toCartItemOutput(item, p)
	out.Message = "Item added to cart successfully"
	return out, nil
}

// 数量変更。0以下は拒否。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, cartItemID int64, quantity int64) (CartItemOutput, error) {
	if cartItemID <= 0 {
		return CartItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}
	if quantity < 1 {
		return CartItemOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
	}

	item, err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, quantity)
	if err == repo.ErrNotFound {
		return CartItemOutput{}, NewHTTPError(http.StatusNotFound, "CartItem not found")
	}
	if err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	p, err := u.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.Touch(ctx, item.CartID); err != nil {
		return CartItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toCartItemOutput(item, p), nil
}

// 明細削除
func (u *CartUsecase) DeleteItem(ctx context.Context, cartItemID int64) error {
	if cartItemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "CartItem not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "CartItem not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.Touch(ctx, item.CartID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}

// 未払いカートの全明細と合計。合計は毎回計算し直す（キャッシュしない）。
func (u *CartUsecase) GetCart(ctx context.Context, cartCode string) (CartOutput, error) {
	if !validCartCode(cartCode) {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid cart_code")
	}

	cart, err := u.cartRepo.FindUnpaidByCode(ctx, strings.TrimSpace(cartCode))
	if err == repo.ErrNotFound {
		return CartOutput{}, NewHTTPError(http.StatusNotFound, "Cart not found")
	}
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartOutput{
		ID:       cart.ID,
		CartCode: cart.CartCode,
		Items:    make([]CartItemOutput, 0, len(items)),
		SumTotal: decimal.Zero,
	}

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		itemOut := toCartItemOutput(it, p)
		out.Items = append(out.Items, itemOut)
		out.SumTotal = out.SumTotal.Add(itemOut.Total)
		out.NumOfItems += it.Quantity
	}

	return out, nil
}

// カート不在は404ではなく200で空を返す（フロントのバッジ用）
func (u *CartUsecase) GetCartStats(ctx context.Context, cartCode string) (CartStatsOutput, error) {
	if !validCartCode(cartCode) {
		return CartStatsOutput{}, NewHTTPError(http.StatusBadRequest, "cart_code is required")
	}

	code := strings.TrimSpace(cartCode)

	cart, err := u.cartRepo.FindUnpaidByCode(ctx, code)
	if err == repo.ErrNotFound {
		return CartStatsOutput{
			ID:         nil,
			CartCode:   code,
			NumOfItems: 0,
			Message:    "Cart not found",
		}, nil
	}
	if err != nil {
		return CartStatsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartStatsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var num int64 = 0
	for _, it := range items {
		num += it.Quantity
	}

	return CartStatsOutput{
		ID:         &cart.ID,
		CartCode:   cart.CartCode,
		NumOfItems: num,
	}, nil
}

// (cart, product)の存在チェック
func (u *CartUsecase) ProductInCart(ctx context.Context, cartCode string, productID int64) (bool, error) {
	if !validCartCode(cartCode) || productID <= 0 {
		return false, NewHTTPError(http.StatusBadRequest, "invalid parameters")
	}

	cart, err := u.cartRepo.FindByCode(ctx, strings.TrimSpace(cartCode))
	if err == repo.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	exists, err := u.cartItemRepo.ExistsByCartAndProduct(ctx, cart.ID, productID)
	if err != nil {
		return false, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return exists, nil
}

func toCartItemOutput(item model.CartItem, p model.Product) CartItemOutput {
	return CartItemOutput{
		ID:       item.ID,
		Quantity: item.Quantity,
		Product:  p,
		Total:    p.Price.Mul(decimal.NewFromInt(item.Quantity)),
	}
}
