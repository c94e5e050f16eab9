// Package mysql 基于 GORM 的定价历史仓储，方言由 pkg/db 按配置选择
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"gorm.io/gorm"
)

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建并返回一个新的 pricingRepository 实例。
func NewPricingRepository(db *gorm.DB) domain.PricingRepository {
	return &pricingRepository{db: db}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&PricingResultModel{})
}

func (r *pricingRepository) Save(ctx context.Context, res *domain.PricingResult) error {
	model := toPricingResultModel(res)
	if model == nil {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	res.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *pricingRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	var m PricingResultModel
	if err := r.db.WithContext(ctx).
		Scopes(bySymbolNewestFirst(symbol)).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPricingResult(&m)
}

func (r *pricingRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var models []PricingResultModel
	if err := r.db.WithContext(ctx).
		Scopes(bySymbolNewestFirst(symbol)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.PricingResult, 0, len(models))
	for i := range models {
		item, err := toPricingResult(&models[i])
		if err != nil {
			return nil, fmt.Errorf("corrupt pricing result %d: %w", models[i].ID, err)
		}
		res = append(res, item)
	}
	return res, nil
}

// bySymbolNewestFirst 同一 calculated_at 下按自增 ID 倒序
func bySymbolNewestFirst(symbol string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("symbol = ?", symbol).Order("calculated_at desc").Order("id desc")
	}
}
