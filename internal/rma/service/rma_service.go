package service

import (
	"context"
	"fmt"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/rma/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/rma/repository"
	"github.com/google/uuid"
)

// OrderObserver 订单侧对RMA状态变化的回调。
// RMA关闭后由本服务显式调用，替代隐式的跨模块信号。
type OrderObserver interface {
	OnRMAResolved(ctx context.Context, orderID string) error
	OnRMAOpened(ctx context.Context, orderID string) error
}

// RMAService 退货单服务。只覆盖采购工作流需要的最小接口：
// 从草稿创建RMA、关闭RMA并通知订单侧。
type RMAService struct {
	rmaRepo  *repository.RMARepository
	observer OrderObserver
}

func NewRMAService(rmaRepo *repository.RMARepository, observer OrderObserver) *RMAService {
	return &RMAService{rmaRepo: rmaRepo, observer: observer}
}

// OpenRMAExists 订单是否存在未关闭的RMA
func (s *RMAService) OpenRMAExists(ctx context.Context, orderID string) (bool, error) {
	return s.rmaRepo.OpenRMAExists(ctx, orderID)
}

// ListDrafts 查询订单的待处理RMA草稿
func (s *RMAService) ListDrafts(ctx context.Context, orderID string) ([]entity.RMADraft, error) {
	return s.rmaRepo.ListDrafts(ctx, orderID)
}

// CreateFromDrafts 将订单的待处理草稿转换为一个正式RMA
func (s *RMAService) CreateFromDrafts(ctx context.Context, orderID, userID string) (*entity.RMA, error) {
	drafts, err := s.rmaRepo.ListDrafts(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("订单没有待处理的RMA草稿")
	}

	rma := &entity.RMA{
		ID:              uuid.New().String()[:32],
		RMANumber:       fmt.Sprintf("RMA-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000),
		PurchaseOrderID: orderID,
		Status:          entity.RMAStatusOpen,
		CreatedBy:       userID,
	}
	if err := s.rmaRepo.Create(ctx, rma); err != nil {
		return nil, err
	}

	for i := range drafts {
		drafts[i].Status = entity.RMADraftStatusConverted
		if err := s.rmaRepo.UpdateDraft(ctx, &drafts[i]); err != nil {
			return nil, err
		}
	}

	if s.observer != nil {
		if err := s.observer.OnRMAOpened(ctx, orderID); err != nil {
			return nil, err
		}
	}
	return rma, nil
}

// Resolve 关闭RMA（resolved 或 cancelled）并通知订单侧重新计算状态
func (s *RMAService) Resolve(ctx context.Context, rmaID, status string) error {
	if status != entity.RMAStatusResolved && status != entity.RMAStatusCancelled {
		return fmt.Errorf("无效的RMA关闭状态: %s", status)
	}

	rma, err := s.rmaRepo.FindByID(ctx, rmaID)
	if err != nil {
		return err
	}
	if rma.Status != entity.RMAStatusOpen {
		return fmt.Errorf("RMA已关闭")
	}

	now := time.Now()
	rma.Status = status
	rma.ResolvedAt = &now
	if err := s.rmaRepo.Update(ctx, rma); err != nil {
		return err
	}

	if s.observer != nil {
		return s.observer.OnRMAResolved(ctx, rma.PurchaseOrderID)
	}
	return nil
}
