package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shoppit/internal/domain/model"
	repo "shoppit/internal/repository"
)

type TransactionGormRepository struct {
	db *gorm.DB
}

// DI
func NewTransactionGormRepository(db *gorm.DB) *TransactionGormRepository {
	return &TransactionGormRepository{db: db}
}

func (r *TransactionGormRepository) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

func (r *TransactionGormRepository) FindByRef(ctx context.Context, ref string) (model.Transaction, error) {
	var t model.Transaction

	err := r.db.WithContext(ctx).
		Where("ref = ?", ref).
		First(&t).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Transaction{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// 同一カートのpending行（再初期化で再利用する）
func (r *TransactionGormRepository) FindPendingByCartID(ctx context.Context, cartID int64) (model.Transaction, error) {
	var t model.Transaction

	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, model.TransactionPending).
		Order("id desc").
		First(&t).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Transaction{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// pending行の金額だけ更新（refは不変）
func (r *TransactionGormRepository) UpdateAmount(ctx context.Context, ref string, amount decimal.Decimal, currency string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("ref = ? AND status = ?", ref, model.TransactionPending).
		Updates(map[string]interface{}{
			"amount":     amount,
			"currency":   currency,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// pending→completedの前方遷移のみ。
// 既にcompletedなら成功扱い（コールバック再送に対して冪等）。
func (r *TransactionGormRepository) MarkCompleted(ctx context.Context, ref string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("ref = ? AND status = ?", ref, model.TransactionPending).
		Updates(map[string]interface{}{
			"status":     model.TransactionCompleted,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var t model.Transaction
		err := r.db.WithContext(ctx).Where("ref = ?", ref).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}
		if t.Status != model.TransactionCompleted {
			return repo.ErrNotFound
		}
	}
	return nil
}
