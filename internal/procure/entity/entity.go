package entity

import (
	"gorm.io/gorm"
)

// AutoMigrate 迁移采购工作流表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&PurchaseOrderComment{},
		&OrderSplit{},
		&OrderSplitItem{},
		&PurchaseOrderReceipt{},
		&PurchaseOrderReceiptItem{},
		&OrderSuggestion{},
		&OrderTemplate{},
		&OrderTemplateItem{},
	)
}
