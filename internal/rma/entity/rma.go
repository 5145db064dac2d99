package entity

import (
	"time"

	"gorm.io/gorm"
)

// RMAStatus 退货单状态
const (
	RMAStatusOpen      = "open"
	RMAStatusResolved  = "resolved"
	RMAStatusCancelled = "cancelled"
)

// RMA 退货单。采购子系统只关心"某订单是否存在未关闭的RMA"，
// 完整的RMA流程由其它模块维护。
type RMA struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	RMANumber       string     `json:"rma_number" gorm:"size:50;not null;uniqueIndex"`
	PurchaseOrderID string     `json:"purchase_order_id" gorm:"size:32;not null;index"`
	Status          string     `json:"status" gorm:"size:20;not null;default:open"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"created_by" gorm:"size:64"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (RMA) TableName() string {
	return "rmas"
}

// RMADraftStatus RMA草稿状态
const (
	RMADraftStatusPending   = "pending"
	RMADraftStatusConverted = "converted"
	RMADraftStatusDiscarded = "discarded"
)

// RMADraft 收货时标记为缺陷的行项生成的短生命周期草稿记录，
// 等待转换为正式RMA或被丢弃。
type RMADraft struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	PurchaseOrderID string    `json:"purchase_order_id" gorm:"size:32;not null;index"`
	OrderItemID     string    `json:"order_item_id" gorm:"size:32;not null;index"`
	ReceiptID       string    `json:"receipt_id" gorm:"size:32;index"`
	ProductID       string    `json:"product_id" gorm:"size:32;not null"`
	Quantity        float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Reason          string    `json:"reason" gorm:"type:text"`
	Status          string    `json:"status" gorm:"size:20;not null;default:pending"`
	CreatedBy       string    `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (RMADraft) TableName() string {
	return "rma_drafts"
}

// AutoMigrate 迁移RMA表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RMA{},
		&RMADraft{},
	)
}
