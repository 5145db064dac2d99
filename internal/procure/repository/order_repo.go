package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"gorm.io/gorm"
)

// OrderRepository 采购订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindAll 查询订单列表
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var orders []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("order_number ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Supplier").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

// FindByID 根据ID查找订单（含行项和供应商）
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var order entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建订单（含行项）
func (r *OrderRepository) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update 更新订单
func (r *OrderRepository) Update(ctx context.Context, order *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// UpdateItem 更新订单行项
func (r *OrderRepository) UpdateItem(ctx context.Context, item *entity.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// ReplaceItems 替换订单行项（仅草稿订单的编辑使用）
func (r *OrderRepository) ReplaceItems(ctx context.Context, orderID string, items []entity.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&entity.PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// Delete 软删除订单（仅草稿订单）。行项和留痕保留，
// 在途数量统计靠订单上的 deleted_at 过滤排除。
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.PurchaseOrder{}).Error
}

// AddComment 写入订单留痕
func (r *OrderRepository) AddComment(ctx context.Context, comment *entity.PurchaseOrderComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments 查询订单留痕
func (r *OrderRepository) ListComments(ctx context.Context, orderID string) ([]entity.PurchaseOrderComment, error) {
	var comments []entity.PurchaseOrderComment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// AlreadyOrdered 产品在未关闭订单（draft/pending/approved/sent）中的
// 有效在途数量合计
func (r *OrderRepository) AlreadyOrdered(ctx context.Context, productID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrderItem{}).
		Select("COALESCE(SUM(purchase_order_items.quantity_ordered - purchase_order_items.canceled_quantity), 0)").
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_items.order_id").
		Where("purchase_order_items.product_id = ?", productID).
		Where("purchase_orders.status IN ?", []entity.OrderStatus{
			entity.OrderStatusDraft,
			entity.OrderStatusPending,
			entity.OrderStatusApproved,
			entity.OrderStatusSent,
		}).
		Where("purchase_orders.deleted_at IS NULL").
		Where("purchase_order_items.status <> ?", entity.ItemStatusCanceled).
		Scan(&total).Error
	return total, err
}

// FindDraftBySupplier 查找供应商的现有草稿订单（建议下单时复用）
func (r *OrderRepository) FindDraftBySupplier(ctx context.Context, supplierID string) (*entity.PurchaseOrder, error) {
	var order entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("supplier_id = ? AND status = ?", supplierID, entity.OrderStatusDraft).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GenerateOrderNumber 生成订单编号 {prefix}{YYYYMMDD}-{3位序号}。
// 当天已有订单时从最大序号接续，否则从 startSeq 开始。
// 返回使用的序号，调用方据此推进全局序号。
func (r *OrderRepository) GenerateOrderNumber(ctx context.Context, prefix string, startSeq int) (string, int, error) {
	day := time.Now().Format("20060102")
	fullPrefix := prefix + day + "-"

	// 软删除的订单编号仍占用序号，编号唯一索引覆盖全表
	var maxNumber string
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&entity.PurchaseOrder{}).
		Select("COALESCE(MAX(order_number), '')").
		Where("order_number LIKE ?", fullPrefix+"%").
		Scan(&maxNumber).Error
	if err != nil {
		return "", 0, err
	}

	seq := startSeq
	if seq < 1 {
		seq = 1
	}
	if maxNumber != "" {
		if last, convErr := strconv.Atoi(strings.TrimPrefix(maxNumber, fullPrefix)); convErr == nil {
			seq = last + 1
		} else {
			seq = 1
		}
	}
	return fmt.Sprintf("%s%03d", fullPrefix, seq), seq, nil
}
