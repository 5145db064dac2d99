package entity

import (
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
)

// RecurrenceFrequency 模板重复周期
const (
	FrequencyDaily      = "daily"
	FrequencyWeekly     = "weekly"
	FrequencyBiweekly   = "biweekly"
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencySemiannual = "semiannual"
	FrequencyAnnual     = "annual"
)

// OrderTemplate 订单模板，可按周期自动生成草稿订单
type OrderTemplate struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:32"`
	Name                string     `json:"name" gorm:"size:128;not null"`
	SupplierID          string     `json:"supplier_id" gorm:"size:32;not null;index"`
	IsActive            bool       `json:"is_active" gorm:"default:true"`
	IsRecurring         bool       `json:"is_recurring" gorm:"default:false"`
	RecurrenceFrequency string     `json:"recurrence_frequency" gorm:"size:20"`
	NextOrderDate       *time.Time `json:"next_order_date" gorm:"index"`
	ShippingAddress     string     `json:"shipping_address" gorm:"type:text"`
	Notes               string     `json:"notes" gorm:"type:text"`
	CreatedBy           string     `json:"created_by" gorm:"size:64"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Supplier *entity.Supplier    `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []OrderTemplateItem `json:"items,omitempty" gorm:"foreignKey:TemplateID"`
}

func (OrderTemplate) TableName() string {
	return "order_templates"
}

// OrderTemplateItem 模板行项。单价在生成订单时按当前供应商价格解析。
type OrderTemplateItem struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	TemplateID string    `json:"template_id" gorm:"size:32;not null;index"`
	ProductID  string    `json:"product_id" gorm:"size:32;not null"`
	Quantity   float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	CreatedAt  time.Time `json:"created_at"`

	Product *entity.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (OrderTemplateItem) TableName() string {
	return "order_template_items"
}
