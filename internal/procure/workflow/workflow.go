package workflow

import (
	"github.com/plumped/InventoryPulse-sub000/internal/config"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	settingsEntity "github.com/plumped/InventoryPulse-sub000/internal/settings/entity"
)

// transitions 状态机合法迁移表。不在表中的组合一律拒绝。
var transitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderStatusDraft: {
		entity.OrderStatusPending,
		entity.OrderStatusCancelled,
	},
	entity.OrderStatusPending: {
		entity.OrderStatusApproved,
		entity.OrderStatusDraft, // 驳回
		entity.OrderStatusCancelled,
	},
	entity.OrderStatusApproved: {
		entity.OrderStatusSent,
		entity.OrderStatusCancelled,
	},
	entity.OrderStatusSent: {
		entity.OrderStatusPartiallyReceived,
		entity.OrderStatusReceived,
		entity.OrderStatusReceivedWithIssues,
		entity.OrderStatusCancelled,
	},
	entity.OrderStatusPartiallyReceived: {
		entity.OrderStatusPartiallyReceived,
		entity.OrderStatusReceived,
		entity.OrderStatusReceivedWithIssues,
	},
	entity.OrderStatusReceived: {
		entity.OrderStatusReceivedWithIssues,
	},
	entity.OrderStatusReceivedWithIssues: {
		entity.OrderStatusReceived,
	},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to entity.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Settings 生效的审批策略。来自数据库的 WorkflowSettings 记录，
// 没有记录时用配置默认值填充（显式注入，不做隐式首行查找）。
type Settings struct {
	OrderApprovalRequired         bool
	OrderApprovalThreshold        float64
	SkipDraftForSmallOrders       bool
	SmallOrderThreshold           float64
	AutoApprovePreferredSuppliers bool
	RequireSeparateApprover       bool
	SendOrderEmails               bool
}

// ResolveSettings 合成生效的审批策略
func ResolveSettings(ws *settingsEntity.WorkflowSettings, cfg config.WorkflowConfig) Settings {
	if ws == nil {
		return Settings{
			OrderApprovalRequired:         cfg.OrderApprovalRequired,
			OrderApprovalThreshold:        cfg.OrderApprovalThreshold,
			SkipDraftForSmallOrders:       cfg.SkipDraftForSmallOrders,
			SmallOrderThreshold:           cfg.SmallOrderThreshold,
			AutoApprovePreferredSuppliers: cfg.AutoApprovePreferredSuppliers,
			RequireSeparateApprover:       cfg.RequireSeparateApprover,
			SendOrderEmails:               cfg.SendOrderEmails,
		}
	}
	return Settings{
		OrderApprovalRequired:         ws.OrderApprovalRequired,
		OrderApprovalThreshold:        ws.OrderApprovalThreshold,
		SkipDraftForSmallOrders:       ws.SkipDraftForSmallOrders,
		SmallOrderThreshold:           ws.SmallOrderThreshold,
		AutoApprovePreferredSuppliers: ws.AutoApprovePreferredSuppliers,
		RequireSeparateApprover:       ws.RequireSeparateApprover,
		SendOrderEmails:               ws.SendOrderEmails,
	}
}

// InitialStatus 新建订单的初始状态
func (s Settings) InitialStatus(total float64) entity.OrderStatus {
	if s.SkipDraftForSmallOrders && total <= s.SmallOrderThreshold {
		return entity.OrderStatusPending
	}
	return entity.OrderStatusDraft
}

// CheckAutoApproval 是否满足自动审批条件：
// 全局不要求审批，或订单金额不超过审批阈值，
// 或启用了首选供应商免审且供应商被标记为首选。
func (s Settings) CheckAutoApproval(total float64, supplierPreferred bool) bool {
	if !s.OrderApprovalRequired {
		return true
	}
	if total <= s.OrderApprovalThreshold {
		return true
	}
	if s.AutoApprovePreferredSuppliers && supplierPreferred {
		return true
	}
	return false
}

// PermApprove 审批订单所需的权限标识
const PermApprove = "order:approve"

// CanApprove 用户是否可以审批该订单：需要审批权限，
// 且启用隔离审批时审批人不能是创建人。
func (s Settings) CanApprove(userID, creatorID string, perms []string) (allowed bool, selfApproval bool) {
	if !hasPerm(perms, PermApprove) {
		return false, false
	}
	if s.RequireSeparateApprover && userID == creatorID {
		return false, true
	}
	return true, false
}

func hasPerm(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}
