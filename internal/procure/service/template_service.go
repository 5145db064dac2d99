package service

import (
	"context"
	"time"

	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recurringLockKey = "pulse:recurring:lock"

// TemplateService 订单模板与定期下单
type TemplateService struct {
	db           *gorm.DB
	templateRepo *repository.TemplateRepository
	orderRepo    *repository.OrderRepository
	suppliers    *masterdataRepo.SupplierRepository
	order        *OrderService
	redis        *redis.Client
	logger       *zap.Logger
}

func NewTemplateService(deps Deps, order *OrderService) *TemplateService {
	return &TemplateService{
		db:           deps.DB,
		templateRepo: deps.Repos.Template,
		orderRepo:    deps.Repos.Order,
		suppliers:    deps.Suppliers,
		order:        order,
		redis:        deps.Redis,
		logger:       deps.Logger,
	}
}

type TemplateItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
}

type CreateTemplateRequest struct {
	Name                string                `json:"name" binding:"required"`
	SupplierID          string                `json:"supplier_id" binding:"required"`
	IsRecurring         bool                  `json:"is_recurring"`
	RecurrenceFrequency string                `json:"recurrence_frequency"`
	NextOrderDate       string                `json:"next_order_date"` // YYYY-MM-DD
	ShippingAddress     string                `json:"shipping_address"`
	Notes               string                `json:"notes"`
	Items               []TemplateItemRequest `json:"items" binding:"required,min=1"`
}

type UpdateTemplateRequest struct {
	Name                *string               `json:"name"`
	IsActive            *bool                 `json:"is_active"`
	IsRecurring         *bool                 `json:"is_recurring"`
	RecurrenceFrequency *string               `json:"recurrence_frequency"`
	NextOrderDate       *string               `json:"next_order_date"`
	ShippingAddress     *string               `json:"shipping_address"`
	Notes               *string               `json:"notes"`
	Items               []TemplateItemRequest `json:"items"`
}

// List 模板列表
func (s *TemplateService) List(ctx context.Context, page, pageSize int) ([]entity.OrderTemplate, int64, error) {
	return s.templateRepo.FindAll(ctx, page, pageSize)
}

// Get 模板详情
func (s *TemplateService) Get(ctx context.Context, id string) (*entity.OrderTemplate, error) {
	return s.templateRepo.FindByID(ctx, id)
}

// Create 创建模板
func (s *TemplateService) Create(ctx context.Context, userID string, req *CreateTemplateRequest) (*entity.OrderTemplate, error) {
	if _, err := s.suppliers.FindByID(ctx, req.SupplierID); err != nil {
		return nil, Guardf("供应商不存在: %s", req.SupplierID)
	}
	if req.IsRecurring && !validFrequency(req.RecurrenceFrequency) {
		return nil, Guardf("无效的重复周期: %s", req.RecurrenceFrequency)
	}

	template := &entity.OrderTemplate{
		ID:                  uuid.New().String()[:32],
		Name:                req.Name,
		SupplierID:          req.SupplierID,
		IsActive:            true,
		IsRecurring:         req.IsRecurring,
		RecurrenceFrequency: req.RecurrenceFrequency,
		ShippingAddress:     req.ShippingAddress,
		Notes:               req.Notes,
		CreatedBy:           userID,
	}
	if req.NextOrderDate != "" {
		if t, err := time.Parse("2006-01-02", req.NextOrderDate); err == nil {
			template.NextOrderDate = &t
		}
	}
	for _, itemReq := range req.Items {
		template.Items = append(template.Items, entity.OrderTemplateItem{
			ID:         uuid.New().String()[:32],
			TemplateID: template.ID,
			ProductID:  itemReq.ProductID,
			Quantity:   itemReq.Quantity,
		})
	}

	if err := s.templateRepo.Create(ctx, template); err != nil {
		return nil, err
	}
	return s.templateRepo.FindByID(ctx, template.ID)
}

// Update 更新模板
func (s *TemplateService) Update(ctx context.Context, id string, req *UpdateTemplateRequest) (*entity.OrderTemplate, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.IsRecurring != nil {
		template.IsRecurring = *req.IsRecurring
	}
	if req.RecurrenceFrequency != nil {
		if !validFrequency(*req.RecurrenceFrequency) {
			return nil, Guardf("无效的重复周期: %s", *req.RecurrenceFrequency)
		}
		template.RecurrenceFrequency = *req.RecurrenceFrequency
	}
	if req.NextOrderDate != nil {
		if t, err := time.Parse("2006-01-02", *req.NextOrderDate); err == nil {
			template.NextOrderDate = &t
		}
	}
	if req.ShippingAddress != nil {
		template.ShippingAddress = *req.ShippingAddress
	}
	if req.Notes != nil {
		template.Notes = *req.Notes
	}

	if req.Items != nil {
		var items []entity.OrderTemplateItem
		for _, itemReq := range req.Items {
			items = append(items, entity.OrderTemplateItem{
				ID:         uuid.New().String()[:32],
				TemplateID: template.ID,
				ProductID:  itemReq.ProductID,
				Quantity:   itemReq.Quantity,
			})
		}
		if err := s.templateRepo.ReplaceItems(ctx, template.ID, items); err != nil {
			return nil, err
		}
	}

	if err := s.templateRepo.Update(ctx, template); err != nil {
		return nil, err
	}
	return s.templateRepo.FindByID(ctx, template.ID)
}

// Delete 删除模板
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if _, err := s.templateRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.templateRepo.Delete(ctx, id)
}

type ProcessRecurringResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// ProcessRecurring 处理到期的定期模板：为每个模板生成一张草稿订单
// 并推进下次下单日期。单个模板失败只记录，不中断其余模板。
func (s *TemplateService) ProcessRecurring(ctx context.Context, asOf time.Time) (*ProcessRecurringResult, error) {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, recurringLockKey, "1", 10*time.Minute).Result()
		if err != nil {
			s.logger.Warn("Failed to acquire recurring lock, proceeding without it", zap.Error(err))
		} else if !ok {
			return nil, Guardf("定期下单正在处理中")
		} else {
			defer s.redis.Del(context.Background(), recurringLockKey)
		}
	}

	templates, err := s.templateRepo.FindDue(ctx, asOf)
	if err != nil {
		return nil, err
	}

	result := &ProcessRecurringResult{}
	for i := range templates {
		template := &templates[i]
		if err := s.materialize(ctx, template, asOf); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, template.Name+": "+err.Error())
			s.logger.Error("Failed to process recurring template",
				zap.String("template_id", template.ID),
				zap.String("template_name", template.Name),
				zap.Error(err))
			continue
		}
		result.Created++
	}
	return result, nil
}

// materialize 从模板生成一张草稿订单并推进下次下单日期
func (s *TemplateService) materialize(ctx context.Context, template *entity.OrderTemplate, asOf time.Time) error {
	order, err := s.order.newOrderShell(ctx, template.SupplierID, template.CreatedBy)
	if err != nil {
		return err
	}
	order.ShippingAddress = template.ShippingAddress
	order.Notes = "由模板生成: " + template.Name

	for _, ti := range template.Items {
		item, err := s.order.buildItem(ctx, order.ID, template.SupplierID, &CreateOrderItemRequest{
			ProductID: ti.ProductID,
			Quantity:  ti.Quantity,
		})
		if err != nil {
			return err
		}
		order.Items = append(order.Items, *item)
	}
	RecalcTotals(order)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return err
	}

	next := NextOrderDate(*template.NextOrderDate, template.RecurrenceFrequency)
	for !next.After(asOf) {
		next = NextOrderDate(next, template.RecurrenceFrequency)
	}
	template.NextOrderDate = &next
	return s.templateRepo.Update(ctx, template)
}

// NextOrderDate 按周期计算下一次下单日期。
// 月/季/年步进按日历推进，月底日期向当月最后一天收敛。
func NextOrderDate(from time.Time, frequency string) time.Time {
	switch frequency {
	case entity.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case entity.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case entity.FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case entity.FrequencyMonthly:
		return addMonthsClamped(from, 1)
	case entity.FrequencyQuarterly:
		return addMonthsClamped(from, 3)
	case entity.FrequencySemiannual:
		return addMonthsClamped(from, 6)
	case entity.FrequencyAnnual:
		return addMonthsClamped(from, 12)
	default:
		return addMonthsClamped(from, 1)
	}
}

// addMonthsClamped 加若干个月，日期超出目标月天数时收敛到月底。
// time.AddDate 会把 1月31日+1月 归一化为 3月3日，这里不接受这种溢出。
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	targetMonth := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := targetMonth.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(targetMonth.Year(), targetMonth.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func validFrequency(f string) bool {
	switch f {
	case entity.FrequencyDaily, entity.FrequencyWeekly, entity.FrequencyBiweekly,
		entity.FrequencyMonthly, entity.FrequencyQuarterly,
		entity.FrequencySemiannual, entity.FrequencyAnnual:
		return true
	}
	return false
}
