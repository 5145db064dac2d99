package entity

import (
	"time"
)

// PurchaseOrderReceipt 一次实际收货事件。只追加，修改即先删除再重建。
type PurchaseOrderReceipt struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID     string    `json:"order_id" gorm:"size:32;not null;index"`
	SplitID     *string   `json:"split_id" gorm:"size:32;index"`
	ReceiptDate time.Time `json:"receipt_date"`
	ReceivedBy  string    `json:"received_by" gorm:"size:64"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`

	Items []PurchaseOrderReceiptItem `json:"items,omitempty" gorm:"foreignKey:ReceiptID"`
	Split *OrderSplit                `json:"split,omitempty" gorm:"foreignKey:SplitID"`
}

func (PurchaseOrderReceipt) TableName() string {
	return "purchase_order_receipts"
}

// PurchaseOrderReceiptItem 单次收货的行项明细
type PurchaseOrderReceiptItem struct {
	ID               string     `json:"id" gorm:"primaryKey;size:32"`
	ReceiptID        string     `json:"receipt_id" gorm:"size:32;not null;index"`
	OrderItemID      string     `json:"order_item_id" gorm:"size:32;not null;index"`
	ProductID        string     `json:"product_id" gorm:"size:32;not null"`
	WarehouseID      string     `json:"warehouse_id" gorm:"size:32;not null"`
	QuantityReceived float64    `json:"quantity_received" gorm:"type:decimal(12,4);not null"`
	BatchNumber      string     `json:"batch_number" gorm:"size:64"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	HasDefect        bool       `json:"has_defect" gorm:"default:false"`
	DefectNotes      string     `json:"defect_notes" gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (PurchaseOrderReceiptItem) TableName() string {
	return "purchase_order_receipt_items"
}
