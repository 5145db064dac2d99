package service

import (
	"context"
	"fmt"

	"github.com/plumped/InventoryPulse-sub000/internal/config"
	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/notify"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/workflow"
	settingsRepo "github.com/plumped/InventoryPulse-sub000/internal/settings/repository"
	stockRepo "github.com/plumped/InventoryPulse-sub000/internal/stock/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GuardError 状态守卫失败，处理器映射为 400
type GuardError struct {
	msg string
}

func (e *GuardError) Error() string {
	return e.msg
}

// Guardf 构造状态守卫错误
func Guardf(format string, args ...interface{}) error {
	return &GuardError{msg: fmt.Sprintf(format, args...)}
}

// PermissionError 权限不足，处理器映射为 403
type PermissionError struct {
	msg string
}

func (e *PermissionError) Error() string {
	return e.msg
}

// Permissionf 构造权限错误
func Permissionf(format string, args ...interface{}) error {
	return &PermissionError{msg: fmt.Sprintf(format, args...)}
}

// RMAChecker 订单状态计算需要的RMA侧查询。
// 用接口解耦，避免采购与RMA模块互相引用。
type RMAChecker interface {
	OpenRMAExists(ctx context.Context, orderID string) (bool, error)
	PendingDraftExists(ctx context.Context, orderID string) (bool, error)
}

// Deps 服务依赖
type Deps struct {
	DB        *gorm.DB
	Repos     *repository.Repositories
	Products  *masterdataRepo.ProductRepository
	Suppliers *masterdataRepo.SupplierRepository
	Stock     *stockRepo.StockRepository
	Settings  *settingsRepo.SettingsRepository
	RMA       RMAChecker
	Workflow  config.WorkflowConfig
	Logger    *zap.Logger
	Mailer    *notify.Mailer
	Redis     *redis.Client
}

// Services 采购工作流服务集合
type Services struct {
	Order      *OrderService
	Split      *SplitService
	Receipt    *ReceiptService
	Suggestion *SuggestionService
	Template   *TemplateService
	Import     *ImportService
}

// NewServices 创建采购工作流服务集合
func NewServices(deps Deps) *Services {
	order := NewOrderService(deps)
	receipt := NewReceiptService(deps)
	return &Services{
		Order:      order,
		Split:      NewSplitService(deps),
		Receipt:    receipt,
		Suggestion: NewSuggestionService(deps, order),
		Template:   NewTemplateService(deps, order),
		Import:     NewImportService(deps, order),
	}
}

// resolvePolicy 读取数据库中的审批策略，没有记录时使用配置默认值
func resolvePolicy(ctx context.Context, settings *settingsRepo.SettingsRepository, cfg config.WorkflowConfig) (workflow.Settings, error) {
	ws, err := settings.GetWorkflowSettings(ctx)
	if err != nil {
		return workflow.Settings{}, err
	}
	return workflow.ResolveSettings(ws, cfg), nil
}

// nextOrderNumber 生成下一个订单编号并推进系统设置里的全局序号。
// 没有系统设置记录时使用默认前缀，序号从当天已有订单接续。
func nextOrderNumber(ctx context.Context, settings *settingsRepo.SettingsRepository, orders *repository.OrderRepository) (string, error) {
	ss, err := settings.GetSystemSettings(ctx)
	if err != nil {
		return "", err
	}
	prefix := "ORD-"
	startSeq := 1
	if ss != nil {
		if ss.OrderNumberPrefix != "" {
			prefix = ss.OrderNumberPrefix
		}
		if ss.NextOrderNumber > 0 {
			startSeq = ss.NextOrderNumber
		}
	}
	number, seq, err := orders.GenerateOrderNumber(ctx, prefix, startSeq)
	if err != nil {
		return "", err
	}
	if ss != nil {
		ss.NextOrderNumber = seq + 1
		if err := settings.Save(ctx, ss); err != nil {
			return "", err
		}
	}
	return number, nil
}
