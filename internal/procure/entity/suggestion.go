package entity

import (
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
)

// OrderSuggestion 补货建议。每次生成时全量重建，仅供参考、可随时丢弃。
type OrderSuggestion struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID              string    `json:"product_id" gorm:"size:32;not null;uniqueIndex"`
	CurrentStock           float64   `json:"current_stock" gorm:"type:decimal(12,4);default:0"`
	MinimumStock           float64   `json:"minimum_stock" gorm:"type:decimal(12,4);default:0"`
	SuggestedOrderQuantity float64   `json:"suggested_order_quantity" gorm:"type:decimal(12,4);not null"`
	PreferredSupplierID    *string   `json:"preferred_supplier_id" gorm:"size:32"`
	CreatedAt              time.Time `json:"created_at"`

	Product           *entity.Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	PreferredSupplier *entity.Supplier `json:"preferred_supplier,omitempty" gorm:"foreignKey:PreferredSupplierID"`
}

func (OrderSuggestion) TableName() string {
	return "order_suggestions"
}
