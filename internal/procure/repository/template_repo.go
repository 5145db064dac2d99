package repository

import (
	"context"
	"errors"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"gorm.io/gorm"
)

// TemplateRepository 订单模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindAll 查询模板列表
func (r *TemplateRepository) FindAll(ctx context.Context, page, pageSize int) ([]entity.OrderTemplate, int64, error) {
	var templates []entity.OrderTemplate
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.OrderTemplate{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&templates).Error

	return templates, total, err
}

// FindByID 根据ID查找模板（含行项）
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.OrderTemplate, error) {
	var template entity.OrderTemplate
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		Where("id = ?", id).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// FindDue 查询已到期的启用中定期模板
func (r *TemplateRepository) FindDue(ctx context.Context, asOf time.Time) ([]entity.OrderTemplate, error) {
	var templates []entity.OrderTemplate
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("is_active = ? AND is_recurring = ?", true, true).
		Where("next_order_date IS NOT NULL AND next_order_date <= ?", asOf).
		Order("next_order_date ASC").
		Find(&templates).Error
	return templates, err
}

// Create 创建模板（含行项）
func (r *TemplateRepository) Create(ctx context.Context, template *entity.OrderTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, template *entity.OrderTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

// ReplaceItems 替换模板行项
func (r *TemplateRepository) ReplaceItems(ctx context.Context, templateID string, items []entity.OrderTemplateItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&entity.OrderTemplateItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// Delete 删除模板及行项
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&entity.OrderTemplateItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.OrderTemplate{}).Error
	})
}
