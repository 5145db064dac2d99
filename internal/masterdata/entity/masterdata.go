package entity

import (
	"time"

	"gorm.io/gorm"
)

// Product 产品主数据
type Product struct {
	ID                string     `json:"id" gorm:"primaryKey;size:32"`
	SKU               string     `json:"sku" gorm:"size:64;not null;uniqueIndex"`
	Name              string     `json:"name" gorm:"size:128;not null"`
	Unit              string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	MinimumStock      float64    `json:"minimum_stock" gorm:"type:decimal(12,4);default:0"`
	HasBatchTracking  bool       `json:"has_batch_tracking" gorm:"default:false"`
	HasExpiryTracking bool       `json:"has_expiry_tracking" gorm:"default:false"`
	TaxID             *string    `json:"tax_id" gorm:"size:32"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at" gorm:"index"`

	Tax *Tax `json:"tax,omitempty" gorm:"foreignKey:TaxID"`
}

func (Product) TableName() string {
	return "products"
}

// Tax 税率
type Tax struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Rate      float64   `json:"rate" gorm:"type:decimal(6,4);not null;default:0"` // 0.19 = 19%
	IsDefault bool      `json:"is_default" gorm:"default:false"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tax) TableName() string {
	return "taxes"
}

// Currency 币种
type Currency struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:10;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:64"`
	IsDefault bool      `json:"is_default" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Currency) TableName() string {
	return "currencies"
}

// Supplier 供应商
type Supplier struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	Name            string     `json:"name" gorm:"size:128;not null"`
	Email           string     `json:"email" gorm:"size:128"`
	IsPreferred     bool       `json:"is_preferred" gorm:"default:false"`
	IsActive        bool       `json:"is_active" gorm:"default:true"`
	ShippingAddress string     `json:"shipping_address" gorm:"type:text"`
	BillingAddress  string     `json:"billing_address" gorm:"type:text"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at" gorm:"index"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// SupplierProduct 供应商-产品关联（采购价、供应商SKU）
type SupplierProduct struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	SupplierID    string    `json:"supplier_id" gorm:"size:32;not null;index:idx_supplier_product,unique"`
	ProductID     string    `json:"product_id" gorm:"size:32;not null;index:idx_supplier_product,unique"`
	SupplierSKU   string    `json:"supplier_sku" gorm:"size:64"`
	PurchasePrice float64   `json:"purchase_price" gorm:"type:decimal(12,4);default:0"`
	IsPreferred   bool      `json:"is_preferred" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Product  *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (SupplierProduct) TableName() string {
	return "supplier_products"
}

// AutoMigrate 迁移主数据表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tax{},
		&Currency{},
		&Product{},
		&Supplier{},
		&SupplierProduct{},
	)
}
