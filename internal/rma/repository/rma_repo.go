package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/rma/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// RMARepository 退货单仓库
type RMARepository struct {
	db *gorm.DB
}

func NewRMARepository(db *gorm.DB) *RMARepository {
	return &RMARepository{db: db}
}

// OpenRMAExists 订单是否存在未关闭的RMA
func (r *RMARepository) OpenRMAExists(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RMA{}).
		Where("purchase_order_id = ? AND status = ?", orderID, entity.RMAStatusOpen).
		Count(&count).Error
	return count > 0, err
}

// PendingDraftExists 订单是否存在待处理的RMA草稿
func (r *RMARepository) PendingDraftExists(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RMADraft{}).
		Where("purchase_order_id = ? AND status = ?", orderID, entity.RMADraftStatusPending).
		Count(&count).Error
	return count > 0, err
}

// FindByID 根据ID查找RMA
func (r *RMARepository) FindByID(ctx context.Context, id string) (*entity.RMA, error) {
	var rma entity.RMA
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rma).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rma, nil
}

// Create 创建RMA
func (r *RMARepository) Create(ctx context.Context, rma *entity.RMA) error {
	return r.db.WithContext(ctx).Create(rma).Error
}

// Update 更新RMA
func (r *RMARepository) Update(ctx context.Context, rma *entity.RMA) error {
	return r.db.WithContext(ctx).Save(rma).Error
}

// ListDrafts 查询订单的待处理RMA草稿
func (r *RMARepository) ListDrafts(ctx context.Context, orderID string) ([]entity.RMADraft, error) {
	var drafts []entity.RMADraft
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ? AND status = ?", orderID, entity.RMADraftStatusPending).
		Order("created_at ASC").
		Find(&drafts).Error
	return drafts, err
}

// UpdateDraft 更新RMA草稿
func (r *RMARepository) UpdateDraft(ctx context.Context, draft *entity.RMADraft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

// DeleteDraftsByReceipt 删除某收货记录产生的待处理草稿（删除收货时回滚）
func (r *RMARepository) DeleteDraftsByReceipt(ctx context.Context, receiptID string) error {
	return r.db.WithContext(ctx).
		Where("receipt_id = ? AND status = ?", receiptID, entity.RMADraftStatusPending).
		Delete(&entity.RMADraft{}).Error
}
