package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"shoppit/internal/domain/model"
	"shoppit/internal/infra/cache"
	repo "shoppit/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

type ProductUsecase struct {
	productRepo repo.ProductRepository
	cache       *cache.ProductCache
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository, c *cache.ProductCache) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		cache:       c,
	}
}

// GET /products（cache-aside）
func (u *ProductUsecase) ListProducts(ctx context.Context) ([]model.Product, error) {
	if products, ok := u.cache.GetList(ctx); ok {
		return products, nil
	}

	products, err := u.productRepo.ListAll(ctx)
	if err != nil {
		return []model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.cache.SetList(ctx, products)
	return products, nil
}

// 商品詳細＋同カテゴリの類似商品
type ProductDetailOutput struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description"`
	Image           string          `json:"image"`
	SimilarProducts []model.Product `json:"similar_products"`
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productSlug string) (ProductDetailOutput, error) {
	if strings.TrimSpace(productSlug) == "" {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, productSlug)
	if err == repo.ErrNotFound {
		return ProductDetailOutput{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return ProductDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	similar, err := u.productRepo.ListSimilar(ctx, p.Category, p.ID)
	if err != nil {
		return ProductDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductDetailOutput{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		Price:           p.Price,
		Description:     p.Description,
		Image:           p.Image,
		SimilarProducts: similar,
	}, nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    model.ProductCategory
	Image       string
}

// 商品作成。slugはここで一度だけ決まる。
func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price.IsNegative() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	switch in.Category {
	case model.CategoryElectronics, model.CategorySports, model.CategoryClothing, "":
	default:
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}

	uniqueSlug, err := u.uniqueSlug(ctx, in.Name)
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		Name:        strings.TrimSpace(in.Name),
		Slug:        uniqueSlug,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Image:       in.Image,
	})
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.cache.Invalidate(ctx)
	return created, nil
}

// 商品更新。slugは再生成しない（不変）。
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	err := u.productRepo.Update(ctx, model.Product{
		ID:          productID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Image:       in.Image,
	})
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.cache.Invalidate(ctx)
	return nil
}

// 名前からslugを作り、衝突したら-1, -2...で一意にする
func (u *ProductUsecase) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	candidate := base
	counter := 1

	for {
		exists, err := u.productRepo.ExistsBySlug(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
		counter++
	}
}
