package entity

import (
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
	"gorm.io/gorm"
)

// OrderStatus 采购订单状态
type OrderStatus string

const (
	OrderStatusDraft              OrderStatus = "draft"
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusApproved           OrderStatus = "approved"
	OrderStatusSent               OrderStatus = "sent"
	OrderStatusPartiallyReceived  OrderStatus = "partially_received"
	OrderStatusReceived           OrderStatus = "received"
	OrderStatusReceivedWithIssues OrderStatus = "received_with_issues"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

// OrderItemStatus 订单行项状态（主动取消维度）
const (
	ItemStatusActive            = "active"
	ItemStatusPartiallyCanceled = "partially_canceled"
	ItemStatusCanceled          = "canceled"
)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID               string      `json:"id" gorm:"primaryKey;size:32"`
	OrderNumber      string      `json:"order_number" gorm:"size:50;not null;uniqueIndex"`
	SupplierID       string      `json:"supplier_id" gorm:"size:32;not null;index"`
	Status           OrderStatus `json:"status" gorm:"size:30;not null;default:draft"`
	OrderDate        *time.Time  `json:"order_date"`
	ExpectedDelivery *time.Time  `json:"expected_delivery"`
	Subtotal         float64     `json:"subtotal" gorm:"type:decimal(12,2);default:0"`
	Tax              float64     `json:"tax" gorm:"type:decimal(12,2);default:0"`
	ShippingCost     float64     `json:"shipping_cost" gorm:"type:decimal(12,2);default:0"`
	Total            float64     `json:"total" gorm:"type:decimal(12,2);default:0"`
	CurrencyCode     string      `json:"currency_code" gorm:"size:10;not null;default:EUR"`
	ShippingAddress  string      `json:"shipping_address" gorm:"type:text"`
	BillingAddress   string      `json:"billing_address" gorm:"type:text"`
	Notes            string      `json:"notes" gorm:"type:text"`
	CreatedBy        string      `json:"created_by" gorm:"size:64;not null"`
	CreatedByEmail   string      `json:"created_by_email" gorm:"size:128"`
	ApprovedBy       string      `json:"approved_by" gorm:"size:64"`
	ApprovedAt       *time.Time  `json:"approved_at"`
	SentAt           *time.Time  `json:"sent_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	// 软删除：删除后行项保留，在途数量统计按 deleted_at 过滤
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Supplier *entity.Supplier    `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Splits   []OrderSplit        `json:"splits,omitempty" gorm:"foreignKey:OrderID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItem 采购订单行项
type PurchaseOrderItem struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID          string    `json:"order_id" gorm:"size:32;not null;index"`
	ProductID        string    `json:"product_id" gorm:"size:32;not null;index"`
	ProductSKU       string    `json:"product_sku" gorm:"size:64"`
	ProductName      string    `json:"product_name" gorm:"size:128"`
	SupplierSKU      string    `json:"supplier_sku" gorm:"size:64"`
	Unit             string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	QuantityOrdered  float64   `json:"quantity_ordered" gorm:"type:decimal(12,4);not null"`
	QuantityReceived float64   `json:"quantity_received" gorm:"type:decimal(12,4);default:0"`
	UnitPrice        float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TaxRate          float64   `json:"tax_rate" gorm:"type:decimal(6,4);default:0"`
	Status           string    `json:"status" gorm:"size:30;not null;default:active"`
	OriginalQuantity float64   `json:"original_quantity" gorm:"type:decimal(12,4);default:0"`
	CanceledQuantity float64   `json:"canceled_quantity" gorm:"type:decimal(12,4);default:0"`
	CancelReason     string    `json:"cancel_reason" gorm:"type:text"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Product *entity.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// EffectiveQuantity 有效数量：下单数量减去已取消数量。
// 所有完成度/剩余量计算一律使用有效数量。
func (i *PurchaseOrderItem) EffectiveQuantity() float64 {
	return i.QuantityOrdered - i.CanceledQuantity
}

// Outstanding 尚未收货的有效数量
func (i *PurchaseOrderItem) Outstanding() float64 {
	remaining := i.EffectiveQuantity() - i.QuantityReceived
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsCanceled 行项是否已整行取消
func (i *PurchaseOrderItem) IsCanceled() bool {
	return i.Status == ItemStatusCanceled
}

// LineSubtotal 行项净额（按有效数量计价）
func (i *PurchaseOrderItem) LineSubtotal() float64 {
	return i.EffectiveQuantity() * i.UnitPrice
}

// LineTax 行项税额
func (i *PurchaseOrderItem) LineTax() float64 {
	return i.LineSubtotal() * i.TaxRate
}

// PurchaseOrderComment 订单状态变更留痕
type PurchaseOrderComment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string    `json:"order_id" gorm:"size:32;not null;index"`
	UserID    string    `json:"user_id" gorm:"size:64"`
	Comment   string    `json:"comment" gorm:"type:text;not null"`
	IsSystem  bool      `json:"is_system" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (PurchaseOrderComment) TableName() string {
	return "purchase_order_comments"
}
