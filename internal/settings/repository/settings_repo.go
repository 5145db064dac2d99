package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/settings/entity"
	"gorm.io/gorm"
)

// SettingsRepository 设置仓库
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSystemSettings 查询系统设置。不存在时返回 nil（调用方使用配置默认值）。
func (r *SettingsRepository) GetSystemSettings(ctx context.Context) (*entity.SystemSettings, error) {
	var s entity.SystemSettings
	err := r.db.WithContext(ctx).Order("created_at ASC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// GetWorkflowSettings 查询审批策略设置。不存在时返回 nil（调用方使用配置默认值）。
func (r *SettingsRepository) GetWorkflowSettings(ctx context.Context) (*entity.WorkflowSettings, error) {
	var s entity.WorkflowSettings
	err := r.db.WithContext(ctx).Order("created_at ASC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Save 保存设置记录
func (r *SettingsRepository) Save(ctx context.Context, value interface{}) error {
	return r.db.WithContext(ctx).Save(value).Error
}
