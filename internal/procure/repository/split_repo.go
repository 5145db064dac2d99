package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"gorm.io/gorm"
)

// SplitRepository 分批发货仓库
type SplitRepository struct {
	db *gorm.DB
}

func NewSplitRepository(db *gorm.DB) *SplitRepository {
	return &SplitRepository{db: db}
}

// FindByID 根据ID查找分批（含行项）
func (r *SplitRepository) FindByID(ctx context.Context, id string) (*entity.OrderSplit, error) {
	var split entity.OrderSplit
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.OrderItem").
		Where("id = ?", id).
		First(&split).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &split, nil
}

// FindByOrder 查询订单的全部分批
func (r *SplitRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.OrderSplit, error) {
	var splits []entity.OrderSplit
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.OrderItem").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&splits).Error
	return splits, err
}

// AllocatedInOpenSplits 订单行项在未关闭分批（planned/in_transit）中
// 已分配的数量合计。收货事务内部也需要查询，因此和库存变动辅助
// 函数一样直接在调用方给定的连接上执行。
func AllocatedInOpenSplits(db *gorm.DB, orderItemID string) (float64, error) {
	var total float64
	err := db.Model(&entity.OrderSplitItem{}).
		Select("COALESCE(SUM(order_split_items.quantity), 0)").
		Joins("JOIN order_splits ON order_splits.id = order_split_items.split_id").
		Where("order_split_items.order_item_id = ?", orderItemID).
		Where("order_splits.status IN ?", []string{entity.SplitStatusPlanned, entity.SplitStatusInTransit}).
		Scan(&total).Error
	return total, err
}

// Create 创建分批（含行项）
func (r *SplitRepository) Create(ctx context.Context, split *entity.OrderSplit) error {
	return r.db.WithContext(ctx).Create(split).Error
}

// Update 更新分批
func (r *SplitRepository) Update(ctx context.Context, split *entity.OrderSplit) error {
	return r.db.WithContext(ctx).Save(split).Error
}

// Delete 删除分批及行项
func (r *SplitRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("split_id = ?", id).Delete(&entity.OrderSplitItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.OrderSplit{}).Error
	})
}

// HasReceipts 分批是否有关联的收货记录
func (r *SplitRepository) HasReceipts(ctx context.Context, splitID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrderReceipt{}).
		Where("split_id = ?", splitID).
		Count(&count).Error
	return count > 0, err
}
