package entity

import (
	"time"
)

// SplitStatus 分批发货状态
const (
	SplitStatusPlanned   = "planned"
	SplitStatusInTransit = "in_transit"
	SplitStatusReceived  = "received"
	SplitStatusCancelled = "cancelled"
)

// OrderSplit 分批发货：订单未交数量中计划单独到货的一个子集
type OrderSplit struct {
	ID               string     `json:"id" gorm:"primaryKey;size:32"`
	OrderID          string     `json:"order_id" gorm:"size:32;not null;index"`
	Name             string     `json:"name" gorm:"size:128"`
	Status           string     `json:"status" gorm:"size:20;not null;default:planned"`
	ExpectedDelivery *time.Time `json:"expected_delivery"`
	Notes            string     `json:"notes" gorm:"type:text"`
	CreatedBy        string     `json:"created_by" gorm:"size:64"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Items []OrderSplitItem `json:"items,omitempty" gorm:"foreignKey:SplitID"`
}

func (OrderSplit) TableName() string {
	return "order_splits"
}

// OrderSplitItem 分批发货行项。只引用订单行项，不拥有它。
type OrderSplitItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	SplitID     string    `json:"split_id" gorm:"size:32;not null;index"`
	OrderItemID string    `json:"order_item_id" gorm:"size:32;not null;index"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	CreatedAt   time.Time `json:"created_at"`

	OrderItem *PurchaseOrderItem `json:"order_item,omitempty" gorm:"foreignKey:OrderItemID"`
}

func (OrderSplitItem) TableName() string {
	return "order_split_items"
}
