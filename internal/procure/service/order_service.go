package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/config"
	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/notify"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/workflow"
	settingsRepo "github.com/plumped/InventoryPulse-sub000/internal/settings/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService 采购订单服务：订单聚合的增删改、状态流转和行项取消
type OrderService struct {
	db        *gorm.DB
	orderRepo *repository.OrderRepository
	products  *masterdataRepo.ProductRepository
	suppliers *masterdataRepo.SupplierRepository
	settings  *settingsRepo.SettingsRepository
	cfg       config.WorkflowConfig
	logger    *zap.Logger
	mailer    *notify.Mailer
}

func NewOrderService(deps Deps) *OrderService {
	return &OrderService{
		db:        deps.DB,
		orderRepo: deps.Repos.Order,
		products:  deps.Products,
		suppliers: deps.Suppliers,
		settings:  deps.Settings,
		cfg:       deps.Workflow,
		logger:    deps.Logger,
		mailer:    deps.Mailer,
	}
}

type CreateOrderItemRequest struct {
	ProductID   string   `json:"product_id" binding:"required"`
	Quantity    float64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice   *float64 `json:"unit_price"`
	SupplierSKU string   `json:"supplier_sku"`
}

type CreateOrderRequest struct {
	SupplierID       string                   `json:"supplier_id" binding:"required"`
	ExpectedDelivery string                   `json:"expected_delivery"` // YYYY-MM-DD
	ShippingCost     float64                  `json:"shipping_cost"`
	ShippingAddress  string                   `json:"shipping_address"`
	BillingAddress   string                   `json:"billing_address"`
	Notes            string                   `json:"notes"`
	Items            []CreateOrderItemRequest `json:"items" binding:"required,min=1"`
}

type UpdateOrderRequest struct {
	ExpectedDelivery string                   `json:"expected_delivery"`
	ShippingCost     *float64                 `json:"shipping_cost"`
	ShippingAddress  *string                  `json:"shipping_address"`
	BillingAddress   *string                  `json:"billing_address"`
	Notes            *string                  `json:"notes"`
	Items            []CreateOrderItemRequest `json:"items"`
}

// List 订单列表
func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.orderRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 订单详情
func (s *OrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// ListComments 订单留痕
func (s *OrderService) ListComments(ctx context.Context, orderID string) ([]entity.PurchaseOrderComment, error) {
	return s.orderRepo.ListComments(ctx, orderID)
}

// Create 创建采购订单。初始状态由审批策略决定；
// 进入 pending 后立即检查自动审批，自动审批不记录审批人。
func (s *OrderService) Create(ctx context.Context, userID, userEmail string, req *CreateOrderRequest) (*entity.PurchaseOrder, error) {
	supplier, err := s.suppliers.FindByID(ctx, req.SupplierID)
	if err != nil {
		return nil, Guardf("供应商不存在: %s", req.SupplierID)
	}

	policy, err := resolvePolicy(ctx, s.settings, s.cfg)
	if err != nil {
		return nil, err
	}

	order, err := s.newOrderShell(ctx, supplier.ID, userID)
	if err != nil {
		return nil, err
	}
	order.CreatedByEmail = userEmail
	order.ShippingCost = req.ShippingCost
	order.ShippingAddress = req.ShippingAddress
	order.BillingAddress = req.BillingAddress
	order.Notes = req.Notes
	if order.ShippingAddress == "" {
		order.ShippingAddress = supplier.ShippingAddress
	}
	if req.ExpectedDelivery != "" {
		if t, err := time.Parse("2006-01-02", req.ExpectedDelivery); err == nil {
			order.ExpectedDelivery = &t
		}
	}

	for _, itemReq := range req.Items {
		item, err := s.buildItem(ctx, order.ID, supplier.ID, &itemReq)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *item)
	}
	RecalcTotals(order)

	order.Status = policy.InitialStatus(order.Total)
	autoApproved := false
	if order.Status == entity.OrderStatusPending && policy.CheckAutoApproval(order.Total, supplier.IsPreferred) {
		// 自动审批不记录审批人
		now := time.Now()
		order.Status = entity.OrderStatusApproved
		order.ApprovedAt = &now
		autoApproved = true
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.addSystemComment(ctx, order.ID, userID, fmt.Sprintf("订单创建，初始状态 %s", order.Status))
	if autoApproved {
		s.addSystemComment(ctx, order.ID, userID, "订单满足自动审批条件，已自动审批")
		s.notifyApproved(policy, order)
	}
	return s.orderRepo.FindByID(ctx, order.ID)
}

// Update 更新订单（仅草稿）。传入行项时整体替换并重算金额。
func (s *OrderService) Update(ctx context.Context, id string, req *UpdateOrderRequest) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusDraft {
		return nil, Guardf("只有草稿状态的订单可以编辑")
	}

	if req.ExpectedDelivery != "" {
		if t, err := time.Parse("2006-01-02", req.ExpectedDelivery); err == nil {
			order.ExpectedDelivery = &t
		}
	}
	if req.ShippingCost != nil {
		order.ShippingCost = *req.ShippingCost
	}
	if req.ShippingAddress != nil {
		order.ShippingAddress = *req.ShippingAddress
	}
	if req.BillingAddress != nil {
		order.BillingAddress = *req.BillingAddress
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if req.Items != nil {
		var items []entity.PurchaseOrderItem
		for _, itemReq := range req.Items {
			item, err := s.buildItem(ctx, order.ID, order.SupplierID, &itemReq)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}
		if err := s.orderRepo.ReplaceItems(ctx, order.ID, items); err != nil {
			return nil, err
		}
		order.Items = items
	}

	RecalcTotals(order)
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, order.ID)
}

// Delete 删除订单（仅草稿）
func (s *OrderService) Delete(ctx context.Context, id string) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusDraft {
		return Guardf("只有草稿状态的订单可以删除")
	}
	return s.orderRepo.Delete(ctx, id)
}

// Submit 提交订单（draft → pending），随后检查自动审批
func (s *OrderService) Submit(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanTransition(order.Status, entity.OrderStatusPending) {
		return nil, Guardf("订单状态不允许提交: %s", order.Status)
	}

	activeItems := 0
	for i := range order.Items {
		if !order.Items[i].IsCanceled() {
			activeItems++
		}
	}
	if activeItems == 0 {
		return nil, Guardf("订单没有可提交的行项")
	}

	policy, err := resolvePolicy(ctx, s.settings, s.cfg)
	if err != nil {
		return nil, err
	}

	order.Status = entity.OrderStatusPending
	s.addSystemComment(ctx, order.ID, userID, "订单已提交待审批")

	supplierPreferred := order.Supplier != nil && order.Supplier.IsPreferred
	autoApproved := false
	if policy.CheckAutoApproval(order.Total, supplierPreferred) {
		now := time.Now()
		order.Status = entity.OrderStatusApproved
		order.ApprovedAt = &now
		autoApproved = true
		s.addSystemComment(ctx, order.ID, userID, "订单满足自动审批条件，已自动审批")
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	if autoApproved {
		s.notifyApproved(policy, order)
	}
	return order, nil
}

// Approve 人工审批（pending → approved）。
// 启用隔离审批时，创建人不能审批自己的订单。
func (s *OrderService) Approve(ctx context.Context, id, userID string, perms []string) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanTransition(order.Status, entity.OrderStatusApproved) {
		return nil, Guardf("只有待审批状态的订单可以审批: %s", order.Status)
	}

	policy, err := resolvePolicy(ctx, s.settings, s.cfg)
	if err != nil {
		return nil, err
	}
	allowed, selfApproval := policy.CanApprove(userID, order.CreatedBy, perms)
	if !allowed {
		if selfApproval {
			return nil, Permissionf("创建人不能审批自己的订单")
		}
		return nil, Permissionf("没有审批订单的权限")
	}

	now := time.Now()
	order.Status = entity.OrderStatusApproved
	order.ApprovedBy = userID
	order.ApprovedAt = &now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.addSystemComment(ctx, order.ID, userID, "订单审批通过")
	s.notifyApproved(policy, order)
	return order, nil
}

// notifyApproved 审批通过后通知创建人，邮件失败不影响订单状态
func (s *OrderService) notifyApproved(policy workflow.Settings, order *entity.PurchaseOrder) {
	if !policy.SendOrderEmails || order.CreatedByEmail == "" {
		return
	}
	if err := s.mailer.SendOrderApproved(order.CreatedByEmail, order.OrderNumber); err != nil {
		s.logger.Warn("Failed to send approval email",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
}

// Reject 驳回订单（pending → draft），驳回原因追加到备注
func (s *OrderService) Reject(ctx context.Context, id, userID, reason string) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, Guardf("只有待审批状态的订单可以驳回: %s", order.Status)
	}

	order.Status = entity.OrderStatusDraft
	if reason != "" {
		if order.Notes != "" {
			order.Notes += "\n"
		}
		order.Notes += fmt.Sprintf("[驳回 %s] %s", time.Now().Format("2006-01-02"), reason)
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.addSystemComment(ctx, order.ID, userID, "订单被驳回: "+reason)
	return order, nil
}

// MarkSent 标记订单已发送给供应商（approved → sent），
// 启用邮件通知时发送订单邮件。
func (s *OrderService) MarkSent(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanTransition(order.Status, entity.OrderStatusSent) {
		return nil, Guardf("只有已审批的订单可以发送: %s", order.Status)
	}

	now := time.Now()
	order.Status = entity.OrderStatusSent
	order.SentAt = &now
	if order.OrderDate == nil {
		order.OrderDate = &now
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.addSystemComment(ctx, order.ID, userID, "订单已发送给供应商")

	policy, err := resolvePolicy(ctx, s.settings, s.cfg)
	if err == nil && policy.SendOrderEmails && order.Supplier != nil && order.Supplier.Email != "" {
		if mailErr := s.mailer.SendOrderSent(order.Supplier.Email, order.OrderNumber); mailErr != nil {
			// 邮件失败不影响订单状态
			s.logger.Warn("Failed to send order email",
				zap.String("order_number", order.OrderNumber),
				zap.Error(mailErr))
		}
	}
	return order, nil
}

type CancelItemRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Reason   string  `json:"reason"`
}

// CancelItem 取消行项（全部或部分）。订单发出后或行项已有收货则不允许。
// 所有行项都被整行取消时订单收敛为 cancelled。
func (s *OrderService) CancelItem(ctx context.Context, orderID, itemID, userID string, req *CancelItemRequest) (*entity.PurchaseOrder, error) {
	return s.changeCancellation(ctx, orderID, itemID, userID, req.Quantity, req.Reason)
}

// EditCancellation 修改已有取消的数量/原因
func (s *OrderService) EditCancellation(ctx context.Context, orderID, itemID, userID string, req *CancelItemRequest) (*entity.PurchaseOrder, error) {
	return s.changeCancellation(ctx, orderID, itemID, userID, req.Quantity, req.Reason)
}

// RevertCancellation 撤销取消，行项恢复 active
func (s *OrderService) RevertCancellation(ctx context.Context, orderID, itemID, userID string) (*entity.PurchaseOrder, error) {
	return s.changeCancellation(ctx, orderID, itemID, userID, 0, "")
}

func (s *OrderService) changeCancellation(ctx context.Context, orderID, itemID, userID string, quantity float64, reason string) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case entity.OrderStatusSent, entity.OrderStatusPartiallyReceived,
		entity.OrderStatusReceived, entity.OrderStatusReceivedWithIssues,
		entity.OrderStatusCancelled:
		return nil, Guardf("订单状态不允许修改行项取消: %s", order.Status)
	}

	var item *entity.PurchaseOrderItem
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return nil, repository.ErrNotFound
	}
	if item.QuantityReceived > 0 {
		return nil, Guardf("行项已有收货，不能取消")
	}
	if quantity < 0 || quantity > item.QuantityOrdered {
		return nil, Guardf("取消数量必须在 0 到 %g 之间", item.QuantityOrdered)
	}

	if quantity == 0 {
		item.CanceledQuantity = 0
		item.CancelReason = ""
		item.Status = entity.ItemStatusActive
		s.addSystemComment(ctx, order.ID, userID, fmt.Sprintf("行项 %s 的取消已撤销", item.ProductSKU))
	} else {
		if item.OriginalQuantity == 0 {
			item.OriginalQuantity = item.QuantityOrdered
		}
		item.CanceledQuantity = quantity
		item.CancelReason = reason
		if quantity >= item.QuantityOrdered {
			item.Status = entity.ItemStatusCanceled
		} else {
			item.Status = entity.ItemStatusPartiallyCanceled
		}
		s.addSystemComment(ctx, order.ID, userID,
			fmt.Sprintf("行项 %s 取消 %g 件: %s", item.ProductSKU, quantity, reason))
	}
	if err := s.orderRepo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	// 全部行项整行取消时订单收敛为 cancelled
	allCanceled := true
	for i := range order.Items {
		if !order.Items[i].IsCanceled() {
			allCanceled = false
			break
		}
	}
	if allCanceled {
		order.Status = entity.OrderStatusCancelled
		s.addSystemComment(ctx, order.ID, userID, "所有行项均已取消，订单已取消")
	}

	RecalcTotals(order)
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, orderID)
}

// ExportCSV 导出订单为CSV。整行取消的行项不导出，数量列为有效数量。
func (s *OrderService) ExportCSV(ctx context.Context, id string, w io.Writer) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	supplierName := ""
	if order.Supplier != nil {
		supplierName = order.Supplier.Name
	}
	orderDate := ""
	if order.OrderDate != nil {
		orderDate = order.OrderDate.Format("2006-01-02")
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"order_number", "supplier", "date", "status",
		"product", "supplier_sku", "quantity", "unit", "unit_price", "line_total"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.IsCanceled() {
			continue
		}
		row := []string{
			order.OrderNumber,
			supplierName,
			orderDate,
			string(order.Status),
			item.ProductName,
			item.SupplierSKU,
			formatQuantity(item.EffectiveQuantity()),
			item.Unit,
			fmt.Sprintf("%.2f", item.UnitPrice),
			fmt.Sprintf("%.2f", item.LineSubtotal()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// newOrderShell 生成带编号和默认币种的订单骨架
func (s *OrderService) newOrderShell(ctx context.Context, supplierID, userID string) (*entity.PurchaseOrder, error) {
	number, err := nextOrderNumber(ctx, s.settings, s.orderRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}

	currencyCode := "EUR"
	if currency, err := s.products.DefaultCurrency(ctx); err == nil {
		currencyCode = currency.Code
	}

	now := time.Now()
	return &entity.PurchaseOrder{
		ID:           uuid.New().String()[:32],
		OrderNumber:  number,
		SupplierID:   supplierID,
		Status:       entity.OrderStatusDraft,
		OrderDate:    &now,
		CurrencyCode: currencyCode,
		CreatedBy:    userID,
	}, nil
}

// buildItem 解析产品、价格和税率，构造订单行项。
// 价格优先取请求值，其次取供应商产品价。税率取产品税率，缺省取默认税率。
func (s *OrderService) buildItem(ctx context.Context, orderID, supplierID string, req *CreateOrderItemRequest) (*entity.PurchaseOrderItem, error) {
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, Guardf("产品不存在: %s", req.ProductID)
	}
	if req.Quantity <= 0 {
		return nil, Guardf("订购数量必须大于0")
	}

	unitPrice := 0.0
	supplierSKU := req.SupplierSKU
	if sp, err := s.suppliers.FindSupplierProduct(ctx, supplierID, product.ID); err == nil {
		unitPrice = sp.PurchasePrice
		if supplierSKU == "" {
			supplierSKU = sp.SupplierSKU
		}
	}
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}

	taxRate := 0.0
	if product.Tax != nil {
		taxRate = product.Tax.Rate
	} else if tax, err := s.products.DefaultTax(ctx); err == nil {
		taxRate = tax.Rate
	}

	return &entity.PurchaseOrderItem{
		ID:              uuid.New().String()[:32],
		OrderID:         orderID,
		ProductID:       product.ID,
		ProductSKU:      product.SKU,
		ProductName:     product.Name,
		SupplierSKU:     supplierSKU,
		Unit:            product.Unit,
		QuantityOrdered: req.Quantity,
		UnitPrice:       unitPrice,
		TaxRate:         taxRate,
		Status:          entity.ItemStatusActive,
	}, nil
}

func (s *OrderService) addSystemComment(ctx context.Context, orderID, userID, text string) {
	comment := &entity.PurchaseOrderComment{
		ID:       uuid.New().String()[:32],
		OrderID:  orderID,
		UserID:   userID,
		Comment:  text,
		IsSystem: true,
	}
	if err := s.orderRepo.AddComment(ctx, comment); err != nil {
		s.logger.Warn("Failed to add order comment",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

// RecalcTotals 按行项重算订单金额。
// 被取消的数量不计入，total = subtotal + tax + shipping_cost。
func RecalcTotals(order *entity.PurchaseOrder) {
	var subtotal, tax float64
	for i := range order.Items {
		subtotal += order.Items[i].LineSubtotal()
		tax += order.Items[i].LineTax()
	}
	order.Subtotal = round2(subtotal)
	order.Tax = round2(tax)
	order.Total = round2(order.Subtotal + order.Tax + order.ShippingCost)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatQuantity(q float64) string {
	s := fmt.Sprintf("%.4f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
