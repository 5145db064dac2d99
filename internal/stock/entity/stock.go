package entity

import (
	"time"

	"gorm.io/gorm"
)

// MovementType 库存变动方向
const (
	MovementIn  = "in"
	MovementOut = "out"
)

// Warehouse 仓库
type Warehouse struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}

// ProductWarehouse 产品在各仓库的库存聚合
type ProductWarehouse struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID   string    `json:"product_id" gorm:"size:32;not null;index:idx_product_warehouse,unique"`
	WarehouseID string    `json:"warehouse_id" gorm:"size:32;not null;index:idx_product_warehouse,unique"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
}

func (ProductWarehouse) TableName() string {
	return "product_warehouses"
}

// StockMovement 库存变动记录
type StockMovement struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID    string    `json:"product_id" gorm:"size:32;not null;index"`
	WarehouseID  string    `json:"warehouse_id" gorm:"size:32;not null;index"`
	Quantity     float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	MovementType string    `json:"movement_type" gorm:"size:10;not null"` // in / out
	Reference    string    `json:"reference" gorm:"size:128"`
	Notes        string    `json:"notes" gorm:"type:text"`
	CreatedBy    string    `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// BatchNumber 批次记录
type BatchNumber struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	ProductID   string     `json:"product_id" gorm:"size:32;not null;index:idx_product_batch_wh,unique"`
	BatchNumber string     `json:"batch_number" gorm:"size:64;not null;index:idx_product_batch_wh,unique"`
	WarehouseID string     `json:"warehouse_id" gorm:"size:32;not null;index:idx_product_batch_wh,unique"`
	Quantity    float64    `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	SupplierID  *string    `json:"supplier_id" gorm:"size:32"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (BatchNumber) TableName() string {
	return "batch_numbers"
}

// AutoMigrate 迁移库存表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Warehouse{},
		&ProductWarehouse{},
		&StockMovement{},
		&BatchNumber{},
	)
}
