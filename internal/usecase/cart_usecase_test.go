package usecase_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"shoppit/internal/domain/model"
	repo "shoppit/internal/repository"
	"shoppit/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateByCode(ctx context.Context, cartCode string) (model.Cart, error) {
	args := m.Called(ctx, cartCode)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindByCode(ctx context.Context, cartCode string) (model.Cart, error) {
	args := m.Called(ctx, cartCode)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindUnpaidByCode(ctx context.Context, cartCode string) (model.Cart, error) {
	args := m.Called(ctx, cartCode)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) MarkPaid(ctx context.Context, cartID int64, userID *int64) error {
	args := m.Called(ctx, cartID, userID)
	return args.Error(0)
}

func (m *CartRepoMock) Touch(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) AddOrIncrement(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID, qty)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) ExistsByCartAndProduct(ctx context.Context, cartID int64, productID int64) (bool, error) {
	args := m.Called(ctx, cartID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *CartItemRepoMock) ListPaidByUserID(ctx context.Context, userID int64, limit int) ([]repo.PaidCartItem, error) {
	args := m.Called(ctx, userID, limit)
	items, _ := args.Get(0).([]repo.PaidCartItem)
	return items, args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) ListSimilar(ctx context.Context, category model.ProductCategory, excludeID int64) ([]model.Product, error) {
	args := m.Called(ctx, category, excludeID)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertHTTPStatus(t *testing.T, err error, wantStatus int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "expected HTTPError, got %v", err) {
		assert.Equal(t, wantStatus, he.Status)
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =====================
// AddItem
// =====================

func TestCartUsecase_AddItem_NewItem(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)

	product := model.Product{ID: 7, Name: "Gaming Mouse", Price: price("25.00")}
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(product, nil)
	cartRepo.On("GetOrCreateByCode", mock.Anything, "ABC123").Return(model.Cart{ID: 1, CartCode: "ABC123"}, nil)
	itemRepo.On("AddOrIncrement", mock.Anything, int64(1), int64(7)).
		Return(model.CartItem{ID: 10, CartID: 1, ProductID: 7, Quantity: 1}, nil)
	cartRepo.On("Touch", mock.Anything, int64(1)).Return(nil)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, productRepo)
	out, err := uc.AddItem(context.Background(), "ABC123", 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Quantity)
	assert.True(t, out.Total.Equal(price("25.00")))
	assert.Equal(t, "Item added to cart successfully", out.Message)
}

func TestCartUsecase_AddItem_SameProductIncrementsQuantity(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)

	product := model.Product{ID: 7, Name: "Gaming Mouse", Price: price("25.00")}
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(product, nil)
	cartRepo.On("GetOrCreateByCode", mock.Anything, "ABC123").Return(model.Cart{ID: 1, CartCode: "ABC123"}, nil)
	//2回目の追加は同じ行のquantityが2になる（行は増えない）
	itemRepo.On("AddOrIncrement", mock.Anything, int64(1), int64(7)).
		Return(model.CartItem{ID: 10, CartID: 1, ProductID: 7, Quantity: 2}, nil)
	cartRepo.On("Touch", mock.Anything, int64(1)).Return(nil)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, productRepo)
	out, err := uc.AddItem(context.Background(), "ABC123", 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(10), out.ID)
	assert.Equal(t, int64(2), out.Quantity)
	assert.True(t, out.Total.Equal(price("50.00")))
	assert.Equal(t, "Item added to cart successfully", out.Message)
}

func TestCartUsecase_AddItem_ProductNotFound(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)

	productRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, productRepo)
	_, err := uc.AddItem(context.Background(), "ABC123", 99)

	assertHTTPStatus(t, err, http.StatusNotFound)
	assertErrContains(t, err, "Product not found")
}

func TestCartUsecase_AddItem_CartCodeTooLong(t *testing.T) {
	uc := usecase.NewCartUsecase(new(CartRepoMock), new(CartItemRepoMock), new(ProductRepoMock))

	//12文字はcart_codeの上限11を超える
	_, err := uc.AddItem(context.Background(), "ABCDEFGHIJKL", 7)

	assertHTTPStatus(t, err, http.StatusBadRequest)
}

// =====================
// UpdateQuantity / DeleteItem
// =====================

func TestCartUsecase_UpdateQuantity_RejectsZeroAndNegative(t *testing.T) {
	uc := usecase.NewCartUsecase(new(CartRepoMock), new(CartItemRepoMock), new(ProductRepoMock))

	_, err := uc.UpdateQuantity(context.Background(), 10, 0)
	assertHTTPStatus(t, err, http.StatusBadRequest)

	_, err = uc.UpdateQuantity(context.Background(), 10, -3)
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCartUsecase_UpdateQuantity_ItemNotFound(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)

	itemRepo.On("UpdateQuantity", mock.Anything, int64(404), int64(2)).
		Return(model.CartItem{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, productRepo)
	_, err := uc.UpdateQuantity(context.Background(), 404, 2)

	assertHTTPStatus(t, err, http.StatusNotFound)
	assertErrContains(t, err, "CartItem not found")
}

func TestCartUsecase_UpdateQuantity_OK(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)

	itemRepo.On("UpdateQuantity", mock.Anything, int64(10), int64(3)).
		Return(model.CartItem{ID: 10, CartID: 1, ProductID: 7, Quantity: 3}, nil)
	productRepo.On("FindByID", mock.Anything, int64(7)).
		Return(model.Product{ID: 7, Price: price("25.00")}, nil)
	cartRepo.On("Touch", mock.Anything, int64(1)).Return(nil)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, productRepo)
	out, err := uc.UpdateQuantity(context.Background(), 10, 3)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), out.Quantity)
	assert.True(t, out.Total.Equal(price("75.00")))
	//追加時のメッセージは数量変更では返さない
	assert.Empty(t, out.Message)
}

func TestCartUsecase_DeleteItem_NotFound(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)

	itemRepo.On("FindByID", mock.Anything, int64(404)).Return(model.CartItem{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, new(ProductRepoMock))
	err := uc.DeleteItem(context.Background(), 404)

	assertHTTPStatus(t, err, http.StatusNotFound)
}

// =====================
// GetCart / GetCartStats
// =====================

func TestCartUsecase_GetCart_SumTotalRecomputed(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(ProductRepoMock)

	cartRepo.On("FindUnpaidByCode", mock.Anything, "ABC123").Return(model.Cart{ID: 1, CartCode: "ABC123"}, nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 10, CartID: 1, ProductID: 7, Quantity: 2},
		{ID: 11, CartID: 1, ProductID: 8, Quantity: 1},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(model.Product{ID: 7, Price: price("10.00")}, nil)
	productRepo.On("FindByID", mock.Anything, int64(8)).Return(model.Product{ID: 8, Price: price("5.00")}, nil)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, productRepo)
	out, err := uc.GetCart(context.Background(), "ABC123")

	assert.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.True(t, out.SumTotal.Equal(price("25.00")), "sum=%s", out.SumTotal)
	assert.Equal(t, int64(3), out.NumOfItems)
}

func TestCartUsecase_GetCart_NotFound(t *testing.T) {
	cartRepo := new(CartRepoMock)
	cartRepo.On("FindUnpaidByCode", mock.Anything, "GHOST").Return(model.Cart{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(cartRepo, new(CartItemRepoMock), new(ProductRepoMock))
	_, err := uc.GetCart(context.Background(), "GHOST")

	assertHTTPStatus(t, err, http.StatusNotFound)
	assertErrContains(t, err, "Cart not found")
}

func TestCartUsecase_GetCartStats_AbsentCartIsNotAnError(t *testing.T) {
	cartRepo := new(CartRepoMock)
	cartRepo.On("FindUnpaidByCode", mock.Anything, "GHOST").Return(model.Cart{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(cartRepo, new(CartItemRepoMock), new(ProductRepoMock))
	out, err := uc.GetCartStats(context.Background(), "GHOST")

	//不在でも200（フロントのバッジ用）
	assert.NoError(t, err)
	assert.Nil(t, out.ID)
	assert.Equal(t, int64(0), out.NumOfItems)
	assert.Equal(t, "Cart not found", out.Message)
}

func TestCartUsecase_ProductInCart(t *testing.T) {
	cartRepo := new(CartRepoMock)
	itemRepo := new(CartItemRepoMock)

	cartRepo.On("FindByCode", mock.Anything, "ABC123").Return(model.Cart{ID: 1, CartCode: "ABC123"}, nil)
	itemRepo.On("ExistsByCartAndProduct", mock.Anything, int64(1), int64(7)).Return(true, nil)

	uc := usecase.NewCartUsecase(cartRepo, itemRepo, new(ProductRepoMock))
	exists, err := uc.ProductInCart(context.Background(), "ABC123", 7)

	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestCartUsecase_ProductInCart_AbsentCartIsFalse(t *testing.T) {
	cartRepo := new(CartRepoMock)
	cartRepo.On("FindByCode", mock.Anything, "GHOST").Return(model.Cart{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(cartRepo, new(CartItemRepoMock), new(ProductRepoMock))
	exists, err := uc.ProductInCart(context.Background(), "GHOST", 7)

	assert.NoError(t, err)
	assert.False(t, exists)
}
