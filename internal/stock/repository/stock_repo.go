package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/stock/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// StockRepository 库存仓库。
// 所有增减操作都支持传入事务句柄（tx），以便收货处理在一个事务内完成。
type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// TotalStock 产品在所有仓库的库存合计
func (r *StockRepository) TotalStock(ctx context.Context, productID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&entity.ProductWarehouse{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID).
		Scan(&total).Error
	return total, err
}

// FindWarehouseByID 根据ID查找仓库
func (r *StockRepository) FindWarehouseByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var wh entity.Warehouse
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wh).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wh, nil
}

// AdjustStock 增减产品-仓库库存聚合（不存在则创建）。delta 可为负。
func AdjustStock(tx *gorm.DB, productID, warehouseID string, delta float64) error {
	var pw entity.ProductWarehouse
	err := tx.Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).First(&pw).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		pw = entity.ProductWarehouse{
			ID:          uuid.New().String()[:32],
			ProductID:   productID,
			WarehouseID: warehouseID,
			Quantity:    delta,
		}
		return tx.Create(&pw).Error
	}
	pw.Quantity += delta
	return tx.Save(&pw).Error
}

// RecordMovement 写入库存变动记录
func RecordMovement(tx *gorm.DB, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()[:32]
	}
	return tx.Create(m).Error
}

// AdjustBatch 批次入库/回退（不存在则创建）。delta 可为负；
// 回退后数量小于等于0时删除批次记录。
func AdjustBatch(tx *gorm.DB, b *entity.BatchNumber, delta float64) error {
	var existing entity.BatchNumber
	err := tx.Where("product_id = ? AND batch_number = ? AND warehouse_id = ?",
		b.ProductID, b.BatchNumber, b.WarehouseID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if delta <= 0 {
			return nil
		}
		b.ID = uuid.New().String()[:32]
		b.Quantity = delta
		return tx.Create(b).Error
	}
	existing.Quantity += delta
	if existing.Quantity <= 0 {
		return tx.Delete(&existing).Error
	}
	if b.ExpiryDate != nil {
		existing.ExpiryDate = b.ExpiryDate
	}
	return tx.Save(&existing).Error
}
