package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"gorm.io/gorm"
)

// ReceiptRepository 收货记录仓库
type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// FindByID 根据ID查找收货记录（含行项）
func (r *ReceiptRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrderReceipt, error) {
	var receipt entity.PurchaseOrderReceipt
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByOrder 查询订单的全部收货记录
func (r *ReceiptRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.PurchaseOrderReceipt, error) {
	var receipts []entity.PurchaseOrderReceipt
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("receipt_date ASC").
		Find(&receipts).Error
	return receipts, err
}
