package service

import (
	"context"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SplitService 分批发货服务
type SplitService struct {
	db        *gorm.DB
	orderRepo *repository.OrderRepository
	splitRepo *repository.SplitRepository
}

func NewSplitService(deps Deps) *SplitService {
	return &SplitService{
		db:        deps.DB,
		orderRepo: deps.Repos.Order,
		splitRepo: deps.Repos.Split,
	}
}

type CreateSplitItemRequest struct {
	OrderItemID string  `json:"order_item_id" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
}

type CreateSplitRequest struct {
	Name             string                   `json:"name"`
	ExpectedDelivery string                   `json:"expected_delivery"` // YYYY-MM-DD
	Notes            string                   `json:"notes"`
	Items            []CreateSplitItemRequest `json:"items" binding:"required,min=1"`
}

// ListByOrder 订单的全部分批
func (s *SplitService) ListByOrder(ctx context.Context, orderID string) ([]entity.OrderSplit, error) {
	return s.splitRepo.FindByOrder(ctx, orderID)
}

// Create 创建分批。每个行项的分批数量不能超过
// 有效数量 − 已收数量 − 其它未关闭分批中已分配的数量。
func (s *SplitService) Create(ctx context.Context, orderID, userID string, req *CreateSplitRequest) (*entity.OrderSplit, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusSent && order.Status != entity.OrderStatusPartiallyReceived {
		return nil, Guardf("订单状态不允许创建分批: %s", order.Status)
	}

	itemsByID := make(map[string]*entity.PurchaseOrderItem, len(order.Items))
	for i := range order.Items {
		itemsByID[order.Items[i].ID] = &order.Items[i]
	}

	split := &entity.OrderSplit{
		ID:        uuid.New().String()[:32],
		OrderID:   order.ID,
		Name:      req.Name,
		Status:    entity.SplitStatusPlanned,
		Notes:     req.Notes,
		CreatedBy: userID,
	}
	if req.ExpectedDelivery != "" {
		if t, err := time.Parse("2006-01-02", req.ExpectedDelivery); err == nil {
			split.ExpectedDelivery = &t
		}
	}

	for _, itemReq := range req.Items {
		orderItem, ok := itemsByID[itemReq.OrderItemID]
		if !ok {
			return nil, Guardf("行项不属于该订单: %s", itemReq.OrderItemID)
		}
		if orderItem.IsCanceled() {
			return nil, Guardf("行项 %s 已取消，不能分批", orderItem.ProductSKU)
		}

		allocated, err := repository.AllocatedInOpenSplits(s.db.WithContext(ctx), orderItem.ID)
		if err != nil {
			return nil, err
		}
		available := orderItem.EffectiveQuantity() - orderItem.QuantityReceived - allocated
		if itemReq.Quantity > available {
			return nil, Guardf("行项 %s 可分批数量不足: 请求 %g, 可用 %g",
				orderItem.ProductSKU, itemReq.Quantity, available)
		}

		split.Items = append(split.Items, entity.OrderSplitItem{
			ID:          uuid.New().String()[:32],
			SplitID:     split.ID,
			OrderItemID: orderItem.ID,
			Quantity:    itemReq.Quantity,
		})
	}

	if err := s.splitRepo.Create(ctx, split); err != nil {
		return nil, err
	}
	return s.splitRepo.FindByID(ctx, split.ID)
}

// UpdateStatus 分批状态流转：planned → in_transit → received，planned → cancelled
func (s *SplitService) UpdateStatus(ctx context.Context, splitID, status string) (*entity.OrderSplit, error) {
	split, err := s.splitRepo.FindByID(ctx, splitID)
	if err != nil {
		return nil, err
	}

	allowed := map[string][]string{
		entity.SplitStatusPlanned:   {entity.SplitStatusInTransit, entity.SplitStatusReceived, entity.SplitStatusCancelled},
		entity.SplitStatusInTransit: {entity.SplitStatusReceived},
	}
	ok := false
	for _, to := range allowed[split.Status] {
		if to == status {
			ok = true
			break
		}
	}
	if !ok {
		return nil, Guardf("分批状态不允许从 %s 变为 %s", split.Status, status)
	}

	split.Status = status
	if err := s.splitRepo.Update(ctx, split); err != nil {
		return nil, err
	}
	return split, nil
}

// Delete 删除分批。已有收货记录的分批不能删除。
func (s *SplitService) Delete(ctx context.Context, splitID string) error {
	split, err := s.splitRepo.FindByID(ctx, splitID)
	if err != nil {
		return err
	}
	hasReceipts, err := s.splitRepo.HasReceipts(ctx, splitID)
	if err != nil {
		return err
	}
	if hasReceipts {
		return Guardf("分批已有收货记录，不能删除")
	}
	return s.splitRepo.Delete(ctx, split.ID)
}

// refreshSplitStatuses 按订单行项的收货汇总推算各分批的完成状态。
// 收货是按订单行项而不是分批行项记录的，因此这里只能用
// 行项聚合的已收数量做启发式判断。
func refreshSplitStatuses(tx *gorm.DB, orderID string) error {
	var splits []entity.OrderSplit
	if err := tx.Preload("Items").Where("order_id = ?", orderID).Find(&splits).Error; err != nil {
		return err
	}
	if len(splits) == 0 {
		return nil
	}

	var items []entity.PurchaseOrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	outstanding := make(map[string]float64, len(items))
	for i := range items {
		outstanding[items[i].ID] = items[i].Outstanding()
	}

	for i := range splits {
		split := &splits[i]
		if split.Status != entity.SplitStatusPlanned && split.Status != entity.SplitStatusInTransit {
			continue
		}
		done := len(split.Items) > 0
		for _, si := range split.Items {
			if outstanding[si.OrderItemID] > 0 {
				done = false
				break
			}
		}
		if done {
			split.Status = entity.SplitStatusReceived
			if err := tx.Save(split).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
