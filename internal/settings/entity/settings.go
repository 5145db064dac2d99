package entity

import (
	"time"

	"gorm.io/gorm"
)

// SystemSettings 系统设置（订单编号前缀和全局序号）
type SystemSettings struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	OrderNumberPrefix string    `json:"order_number_prefix" gorm:"size:20;not null;default:ORD-"`
	NextOrderNumber   int       `json:"next_order_number" gorm:"default:1"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (SystemSettings) TableName() string {
	return "system_settings"
}

// WorkflowSettings 采购审批策略设置
type WorkflowSettings struct {
	ID                            string    `json:"id" gorm:"primaryKey;size:32"`
	OrderApprovalRequired         bool      `json:"order_approval_required" gorm:"default:true"`
	OrderApprovalThreshold        float64   `json:"order_approval_threshold" gorm:"type:decimal(12,2);default:1000"`
	SkipDraftForSmallOrders       bool      `json:"skip_draft_for_small_orders" gorm:"default:false"`
	SmallOrderThreshold           float64   `json:"small_order_threshold" gorm:"type:decimal(12,2);default:200"`
	AutoApprovePreferredSuppliers bool      `json:"auto_approve_preferred_suppliers" gorm:"default:false"`
	RequireSeparateApprover       bool      `json:"require_separate_approver" gorm:"default:true"`
	SendOrderEmails               bool      `json:"send_order_emails" gorm:"default:false"`
	CreatedAt                     time.Time `json:"created_at"`
	UpdatedAt                     time.Time `json:"updated_at"`
}

func (WorkflowSettings) TableName() string {
	return "workflow_settings"
}

// AutoMigrate 迁移设置表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SystemSettings{},
		&WorkflowSettings{},
	)
}
