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

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// cart_codeで取得し、無ければ作成。
// 同時作成はcart_codeの一意制約にDO NOTHINGで当てて、再検索で既存行を拾う。
// unique違反でトランザクションを巻き戻す経路を作らない。
func (r *CartGormRepository) GetOrCreateByCode(ctx context.Context, cartCode string) (model.Cart, error) {
	now := time.Now()
	newCart := model.Cart{
		CartCode:  cartCode,
		Paid:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_code"}},
			DoNothing: true,
		}).
		Create(&newCart).Error
	if err != nil {
		return model.Cart{}, err
	}

	//挿入に負けた側もここで既存行を拾う
	var cart model.Cart
	if err := r.db.WithContext(ctx).
		Where("cart_code = ?", cartCode).
		First(&cart).Error; err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByCode(ctx context.Context, cartCode string) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("cart_code = ?", cartCode).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// 未払いカートのみ
func (r *CartGormRepository) FindUnpaidByCode(ctx context.Context, cartCode string) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("cart_code = ? AND paid = ?", cartCode, false).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).First(&cart, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// paid=falseの行だけをtrueへ（false→trueの一方向）。
// 既にpaid=trueなら何もせず成功扱い。
func (r *CartGormRepository) MarkPaid(ctx context.Context, cartID int64, userID *int64) error {
	values := map[string]interface{}{
		"paid":       true,
		"updated_at": time.Now(),
	}
	if userID != nil {
		values["user_id"] = *userID
	}

	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ? AND paid = ?", cartID, false).
		Updates(values)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		//行が無いのか、既にpaidなのかを区別する
		var cart model.Cart
		if err := r.db.WithContext(ctx).First(&cart, cartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrNotFound
			}
			return err
		}
	}
	return nil
}

// modified_atを進める
func (r *CartGormRepository) Touch(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now())

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
