package service

import (
	"context"
	"fmt"
	"time"

	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	rmaEntity "github.com/plumped/InventoryPulse-sub000/internal/rma/entity"
	stockEntity "github.com/plumped/InventoryPulse-sub000/internal/stock/entity"
	stockRepo "github.com/plumped/InventoryPulse-sub000/internal/stock/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReceiptService 收货处理：在一个事务内记录收货行项、
// 累加行项已收数量、登记库存变动、维护仓库与批次聚合，
// 并重算订单和分批状态。
type ReceiptService struct {
	db          *gorm.DB
	orderRepo   *repository.OrderRepository
	splitRepo   *repository.SplitRepository
	receiptRepo *repository.ReceiptRepository
	products    *masterdataRepo.ProductRepository
	stock       *stockRepo.StockRepository
	rma         RMAChecker
	logger      *zap.Logger
}

func NewReceiptService(deps Deps) *ReceiptService {
	return &ReceiptService{
		db:          deps.DB,
		orderRepo:   deps.Repos.Order,
		splitRepo:   deps.Repos.Split,
		receiptRepo: deps.Repos.Receipt,
		products:    deps.Products,
		stock:       deps.Stock,
		rma:         deps.RMA,
		logger:      deps.Logger,
	}
}

type ReceiveLine struct {
	OrderItemID string  `json:"order_item_id" binding:"required"`
	Quantity    float64 `json:"quantity"`
	WarehouseID string  `json:"warehouse_id" binding:"required"`
	BatchNumber string  `json:"batch_number"`
	ExpiryDate  string  `json:"expiry_date"` // YYYY-MM-DD
	HasDefect   bool    `json:"has_defect"`
	DefectNotes string  `json:"defect_notes"`
}

type ReceiveRequest struct {
	SplitID           string        `json:"split_id"`
	Notes             string        `json:"notes"`
	CreateFutureSplit bool          `json:"create_future_split"`
	Lines             []ReceiveLine `json:"lines" binding:"required,min=1"`
}

type ReceiveResult struct {
	Receipt     *entity.PurchaseOrderReceipt `json:"receipt,omitempty"`
	OrderStatus entity.OrderStatus           `json:"order_status"`
	Warnings    []string                     `json:"warnings,omitempty"`
}

// Receive 记录一次收货
func (s *ReceiptService) Receive(ctx context.Context, orderID, userID string, req *ReceiveRequest) (*ReceiveResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusSent && order.Status != entity.OrderStatusPartiallyReceived {
		return nil, Guardf("订单状态不允许收货: %s", order.Status)
	}

	itemsByID := make(map[string]*entity.PurchaseOrderItem, len(order.Items))
	for i := range order.Items {
		itemsByID[order.Items[i].ID] = &order.Items[i]
	}

	// 校验行项归属、数量上限和仓库存在性。
	// 同一行项允许多条记录（不同仓库/批次），上限按行项合计校验。
	received := 0
	requested := make(map[string]float64, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			continue
		}
		received++
		item, ok := itemsByID[line.OrderItemID]
		if !ok {
			return nil, Guardf("行项不属于该订单: %s", line.OrderItemID)
		}
		if item.IsCanceled() {
			return nil, Guardf("行项 %s 已取消，不能收货", item.ProductSKU)
		}
		requested[line.OrderItemID] += line.Quantity
		if requested[line.OrderItemID] > item.Outstanding() {
			return nil, Guardf("行项 %s 收货数量超出未交数量: 请求 %g, 未交 %g",
				item.ProductSKU, requested[line.OrderItemID], item.Outstanding())
		}
		if _, err := s.stock.FindWarehouseByID(ctx, line.WarehouseID); err != nil {
			return nil, Guardf("仓库不存在: %s", line.WarehouseID)
		}
	}

	result := &ReceiveResult{OrderStatus: order.Status}
	if received == 0 {
		// 没有任何实际收货，不落收货记录
		result.Warnings = append(result.Warnings, "没有收到任何商品")
		return result, nil
	}

	var splitID *string
	if req.SplitID != "" {
		split, err := s.splitRepo.FindByID(ctx, req.SplitID)
		if err != nil {
			return nil, err
		}
		if split.OrderID != order.ID {
			return nil, Guardf("分批不属于该订单")
		}
		splitID = &split.ID
	}

	openRMA, err := s.rma.OpenRMAExists(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	receipt := &entity.PurchaseOrderReceipt{
		ID:          uuid.New().String()[:32],
		OrderID:     order.ID,
		SplitID:     splitID,
		ReceiptDate: time.Now(),
		ReceivedBy:  userID,
		Notes:       req.Notes,
	}

	hasDefects := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(receipt).Error; err != nil {
			return err
		}

		for _, line := range req.Lines {
			if line.Quantity <= 0 {
				continue
			}
			item := itemsByID[line.OrderItemID]

			receiptItem := &entity.PurchaseOrderReceiptItem{
				ID:               uuid.New().String()[:32],
				ReceiptID:        receipt.ID,
				OrderItemID:      item.ID,
				ProductID:        item.ProductID,
				WarehouseID:      line.WarehouseID,
				QuantityReceived: line.Quantity,
				BatchNumber:      line.BatchNumber,
				HasDefect:        line.HasDefect,
				DefectNotes:      line.DefectNotes,
			}
			if line.ExpiryDate != "" {
				if t, parseErr := time.Parse("2006-01-02", line.ExpiryDate); parseErr == nil {
					receiptItem.ExpiryDate = &t
				}
			}
			if err := tx.Create(receiptItem).Error; err != nil {
				return err
			}

			item.QuantityReceived += line.Quantity
			if err := tx.Save(item).Error; err != nil {
				return err
			}

			movement := &stockEntity.StockMovement{
				ProductID:    item.ProductID,
				WarehouseID:  line.WarehouseID,
				Quantity:     line.Quantity,
				MovementType: stockEntity.MovementIn,
				Reference:    fmt.Sprintf("receipt:%s", receipt.ID),
				Notes:        fmt.Sprintf("订单 %s 收货", order.OrderNumber),
				CreatedBy:    userID,
			}
			if err := stockRepo.RecordMovement(tx, movement); err != nil {
				return err
			}
			if err := stockRepo.AdjustStock(tx, item.ProductID, line.WarehouseID, line.Quantity); err != nil {
				return err
			}

			// 产品启用批次跟踪且提供批号时维护批次聚合
			if line.BatchNumber != "" {
				product, prodErr := s.products.FindByID(ctx, item.ProductID)
				if prodErr == nil && product.HasBatchTracking {
					batch := &stockEntity.BatchNumber{
						ProductID:   item.ProductID,
						BatchNumber: line.BatchNumber,
						WarehouseID: line.WarehouseID,
						SupplierID:  &order.SupplierID,
					}
					batch.ExpiryDate = receiptItem.ExpiryDate
					if err := stockRepo.AdjustBatch(tx, batch, line.Quantity); err != nil {
						return err
					}
				}
			}

			// 缺陷行项生成RMA草稿，等待后续转为正式RMA
			if line.HasDefect {
				hasDefects = true
				draft := &rmaEntity.RMADraft{
					ID:              uuid.New().String()[:32],
					PurchaseOrderID: order.ID,
					OrderItemID:     item.ID,
					ReceiptID:       receipt.ID,
					ProductID:       item.ProductID,
					Quantity:        line.Quantity,
					Reason:          line.DefectNotes,
					Status:          rmaEntity.RMADraftStatusPending,
					CreatedBy:       userID,
				}
				if err := tx.Create(draft).Error; err != nil {
					return err
				}
			}
		}

		recomputeOrderStatus(order, openRMA)
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		if err := refreshSplitStatuses(tx, order.ID); err != nil {
			return err
		}

		// 可选为剩余未交数量自动创建后续分批
		if req.CreateFutureSplit {
			if err := s.createFutureSplit(tx, order, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hasDefects {
		result.Warnings = append(result.Warnings, "部分行项标记了质量问题，已生成RMA草稿")
	}

	full, err := s.receiptRepo.FindByID(ctx, receipt.ID)
	if err != nil {
		return nil, err
	}
	result.Receipt = full
	result.OrderStatus = order.Status
	return result, nil
}

// ListByOrder 订单的全部收货记录
func (s *ReceiptService) ListByOrder(ctx context.Context, orderID string) ([]entity.PurchaseOrderReceipt, error) {
	return s.receiptRepo.FindByOrder(ctx, orderID)
}

// DeleteReceipt 删除收货记录并回滚其全部效果：
// 行项已收数量回退、反向库存变动、仓库与批次聚合回退、
// 订单与分批状态重算。删除分批的最后一条收货时该分批退回 planned，
// deleteEmptySplit 为 true 时直接删除。
func (s *ReceiptService) DeleteReceipt(ctx context.Context, receiptID string, deleteEmptySplit bool) error {
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		return err
	}
	order, err := s.orderRepo.FindByID(ctx, receipt.OrderID)
	if err != nil {
		return err
	}

	openRMA, err := s.rma.OpenRMAExists(ctx, order.ID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		itemsByID := make(map[string]*entity.PurchaseOrderItem, len(order.Items))
		for i := range order.Items {
			itemsByID[order.Items[i].ID] = &order.Items[i]
		}

		for _, ri := range receipt.Items {
			item, ok := itemsByID[ri.OrderItemID]
			if !ok {
				continue
			}
			item.QuantityReceived -= ri.QuantityReceived
			if item.QuantityReceived < 0 {
				item.QuantityReceived = 0
			}
			if err := tx.Save(item).Error; err != nil {
				return err
			}

			movement := &stockEntity.StockMovement{
				ProductID:    ri.ProductID,
				WarehouseID:  ri.WarehouseID,
				Quantity:     ri.QuantityReceived,
				MovementType: stockEntity.MovementOut,
				Reference:    fmt.Sprintf("receipt-reversal:%s", receipt.ID),
				Notes:        fmt.Sprintf("订单 %s 收货删除回滚", order.OrderNumber),
				CreatedBy:    receipt.ReceivedBy,
			}
			if err := stockRepo.RecordMovement(tx, movement); err != nil {
				return err
			}
			if err := stockRepo.AdjustStock(tx, ri.ProductID, ri.WarehouseID, -ri.QuantityReceived); err != nil {
				return err
			}

			if ri.BatchNumber != "" {
				batch := &stockEntity.BatchNumber{
					ProductID:   ri.ProductID,
					BatchNumber: ri.BatchNumber,
					WarehouseID: ri.WarehouseID,
				}
				if err := stockRepo.AdjustBatch(tx, batch, -ri.QuantityReceived); err != nil {
					return err
				}
			}
		}

		// 回收该收货产生的待处理RMA草稿
		if err := tx.Where("receipt_id = ? AND status = ?", receipt.ID, rmaEntity.RMADraftStatusPending).
			Delete(&rmaEntity.RMADraft{}).Error; err != nil {
			return err
		}

		if err := tx.Where("receipt_id = ?", receipt.ID).
			Delete(&entity.PurchaseOrderReceiptItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", receipt.ID).
			Delete(&entity.PurchaseOrderReceipt{}).Error; err != nil {
			return err
		}

		recomputeOrderStatus(order, openRMA)
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		if err := refreshSplitStatuses(tx, order.ID); err != nil {
			return err
		}

		// 分批不再有收货记录时退回 planned
		if receipt.SplitID != nil {
			var remaining int64
			if err := tx.Model(&entity.PurchaseOrderReceipt{}).
				Where("split_id = ?", *receipt.SplitID).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if deleteEmptySplit {
					if err := tx.Where("split_id = ?", *receipt.SplitID).
						Delete(&entity.OrderSplitItem{}).Error; err != nil {
						return err
					}
					if err := tx.Where("id = ?", *receipt.SplitID).
						Delete(&entity.OrderSplit{}).Error; err != nil {
						return err
					}
				} else {
					if err := tx.Model(&entity.OrderSplit{}).
						Where("id = ?", *receipt.SplitID).
						Update("status", entity.SplitStatusPlanned).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// OnRMAOpened 订单关联的RMA被打开后的回调：
// 订单已全量收货时转入 received_with_issues。
func (s *ReceiptService) OnRMAOpened(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusReceived && order.Status != entity.OrderStatusPartiallyReceived &&
		order.Status != entity.OrderStatusSent {
		return nil
	}
	recomputeOrderStatus(order, true)
	return s.orderRepo.Update(ctx, order)
}

// OnRMAResolved 订单关联的RMA关闭后的回调：
// 没有其它未关闭RMA且没有待处理的质量草稿时，
// received_with_issues 回到 received。
func (s *ReceiptService) OnRMAResolved(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusReceivedWithIssues {
		return nil
	}

	open, err := s.rma.OpenRMAExists(ctx, orderID)
	if err != nil {
		return err
	}
	pending, err := s.rma.PendingDraftExists(ctx, orderID)
	if err != nil {
		return err
	}
	if open || pending {
		return nil
	}

	order.Status = entity.OrderStatusReceived
	return s.orderRepo.Update(ctx, order)
}

// recomputeOrderStatus 按行项收货汇总推算订单状态。
// 整行取消的行项不计入完成度；收货回滚后允许状态退回 sent。
func recomputeOrderStatus(order *entity.PurchaseOrder, openRMA bool) {
	var totalEffective, totalReceived float64
	allCanceled := true
	for i := range order.Items {
		item := &order.Items[i]
		if item.IsCanceled() {
			continue
		}
		allCanceled = false
		totalEffective += item.EffectiveQuantity()
		totalReceived += item.QuantityReceived
	}

	if allCanceled {
		order.Status = entity.OrderStatusCancelled
		return
	}

	switch {
	case totalReceived <= 0:
		order.Status = entity.OrderStatusSent
	case totalReceived >= totalEffective:
		if openRMA {
			order.Status = entity.OrderStatusReceivedWithIssues
		} else {
			order.Status = entity.OrderStatusReceived
		}
	default:
		order.Status = entity.OrderStatusPartiallyReceived
	}
}

// createFutureSplit 为剩余未交数量创建后续分批
func (s *ReceiptService) createFutureSplit(tx *gorm.DB, order *entity.PurchaseOrder, userID string) error {
	split := &entity.OrderSplit{
		ID:        uuid.New().String()[:32],
		OrderID:   order.ID,
		Name:      "后续交货",
		Status:    entity.SplitStatusPlanned,
		CreatedBy: userID,
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.IsCanceled() || item.Outstanding() <= 0 {
			continue
		}

		// 扣除其它未关闭分批已分配的数量
		allocated, err := repository.AllocatedInOpenSplits(tx, item.ID)
		if err != nil {
			return err
		}

		remaining := item.Outstanding() - allocated
		if remaining <= 0 {
			continue
		}
		split.Items = append(split.Items, entity.OrderSplitItem{
			ID:          uuid.New().String()[:32],
			SplitID:     split.ID,
			OrderItemID: item.ID,
			Quantity:    remaining,
		})
	}

	if len(split.Items) == 0 {
		return nil
	}
	return tx.Create(split).Error
}
