package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shoppit/internal/domain/model"
	repo "shoppit/internal/repository"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// (cart_id, product_id)の一意制約に衝突したら quantity+1。
// read-then-writeではなくDB側のconflict解決で競合を閉じる。
func (r *CartItemGormRepository) AddOrIncrement(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	now := time.Now()
	item := model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + 1"),
				"updated_at": now,
			}),
		}).
		Create(&item).Error
	if err != nil {
		return model.CartItem{}, err
	}

	//加算後の行を読み直して返す
	var saved model.CartItem
	err = r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&saved).Error
	if err != nil {
		return model.CartItem{}, err
	}

	return saved, nil
}

// 明細の数量を更新して、更新後の行を返す
func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) (model.CartItem, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Updates(map[string]interface{}{
			"quantity":   qty,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return model.CartItem{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.CartItem{}, repo.ErrNotFound
	}

	return r.FindByID(ctx, cartItemID)
}

func (r *CartItemGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartItemGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

func (r *CartItemGormRepository) ExistsByCartAndProduct(ctx context.Context, cartID int64, productID int64) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Count(&count).Error

	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// 支払済みカートの明細をカート更新日の新しい順で返す（注文履歴）
func (r *CartItemGormRepository) ListPaidByUserID(ctx context.Context, userID int64, limit int) ([]repo.PaidCartItem, error) {
	var carts []model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND paid = ?", userID, true).
		Order("updated_at desc").
		Find(&carts).Error
	if err != nil {
		return []repo.PaidCartItem{}, err
	}

	out := make([]repo.PaidCartItem, 0, limit)
	for _, cart := range carts {
		if len(out) >= limit {
			break
		}

		var items []model.CartItem
		if err := r.db.WithContext(ctx).
			Where("cart_id = ?", cart.ID).
			Order("id asc").
			Find(&items).Error; err != nil {
			return []repo.PaidCartItem{}, err
		}

		for _, it := range items {
			if len(out) >= limit {
				break
			}

			var p model.Product
			if err := r.db.WithContext(ctx).First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return []repo.PaidCartItem{}, err
			}

			out = append(out, repo.PaidCartItem{
				Item:      it,
				Product:   p,
				OrderID:   cart.CartCode,
				OrderDate: cart.UpdatedAt,
			})
		}
	}

	return out, nil
}
