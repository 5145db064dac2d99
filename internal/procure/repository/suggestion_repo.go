package repository

import (
	"context"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"gorm.io/gorm"
)

// SuggestionRepository 补货建议仓库
type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// FindAll 查询全部建议
func (r *SuggestionRepository) FindAll(ctx context.Context) ([]entity.OrderSuggestion, error) {
	var suggestions []entity.OrderSuggestion
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("PreferredSupplier").
		Order("created_at ASC").
		Find(&suggestions).Error
	return suggestions, err
}

// FindByIDs 根据ID查询建议
func (r *SuggestionRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.OrderSuggestion, error) {
	var suggestions []entity.OrderSuggestion
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id IN ?", ids).
		Find(&suggestions).Error
	return suggestions, err
}

// Rebuild 全量重建建议集（先删后建，单事务）
func (r *SuggestionRepository) Rebuild(ctx context.Context, suggestions []entity.OrderSuggestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.OrderSuggestion{}).Error; err != nil {
			return err
		}
		if len(suggestions) == 0 {
			return nil
		}
		return tx.Create(&suggestions).Error
	})
}

// Delete 删除建议
func (r *SuggestionRepository) Delete(ctx context.Context, ids []string) error {
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&entity.OrderSuggestion{}).Error
}
