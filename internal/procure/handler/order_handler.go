package handler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 采购订单处理器
type OrderHandler struct {
	svc       *service.OrderService
	importSvc *service.ImportService
}

func NewOrderHandler(svc *service.OrderService, importSvc *service.ImportService) *OrderHandler {
	return &OrderHandler{svc: svc, importSvc: importSvc}
}

// List 订单列表
// GET /api/v1/purchase-orders?supplier_id=xxx&status=xxx&search=xxx
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier_id": c.Query("supplier_id"),
		"status":      c.Query("status"),
		"search":      c.Query("search"),
	}

	orders, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(orders, page, pageSize, total))
}

// Get 订单详情
// GET /api/v1/purchase-orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// ListComments 订单留痕
// GET /api/v1/purchase-orders/:id/comments
func (h *OrderHandler) ListComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, comments)
}

// Create 创建订单
// POST /api/v1/purchase-orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), GetUserID(c), GetUserEmail(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, order)
}

// Update 更新订单
// PUT /api/v1/purchase-orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// Delete 删除订单
// DELETE /api/v1/purchase-orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Submit 提交订单
// POST /api/v1/purchase-orders/:id/submit
func (h *OrderHandler) Submit(c *gin.Context) {
	order, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// Approve 审批订单
// POST /api/v1/purchase-orders/:id/approve
func (h *OrderHandler) Approve(c *gin.Context) {
	order, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c), GetPermissions(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// Reject 驳回订单
// POST /api/v1/purchase-orders/:id/reject
func (h *OrderHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)

	order, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), req.Reason)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// MarkSent 标记订单已发送
// POST /api/v1/purchase-orders/:id/mark-sent
func (h *OrderHandler) MarkSent(c *gin.Context) {
	order, err := h.svc.MarkSent(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// CancelItem 取消行项
// POST /api/v1/purchase-orders/:id/items/:itemId/cancel
func (h *OrderHandler) CancelItem(c *gin.Context) {
	var req service.CancelItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.CancelItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// EditCancellation 修改行项取消
// PUT /api/v1/purchase-orders/:id/items/:itemId/cancel
func (h *OrderHandler) EditCancellation(c *gin.Context) {
	var req service.CancelItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.EditCancellation(c.Request.Context(), c.Param("id"), c.Param("itemId"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// RevertCancellation 撤销行项取消
// DELETE /api/v1/purchase-orders/:id/items/:itemId/cancel
func (h *OrderHandler) RevertCancellation(c *gin.Context) {
	order, err := h.svc.RevertCancellation(c.Request.Context(), c.Param("id"), c.Param("itemId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// Export 导出订单CSV
// GET /api/v1/purchase-orders/:id/export
func (h *OrderHandler) Export(c *gin.Context) {
	id := c.Param("id")
	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", order.OrderNumber))
	if err := h.svc.ExportCSV(c.Request.Context(), id, c.Writer); err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}
}

// Import 批量导入订单
// POST /api/v1/purchase-orders/import  (multipart: file)
func (h *OrderHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少导入文件")
		return
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "打开导入文件失败: "+err.Error())
		return
	}
	defer file.Close()

	result, err := h.importSvc.ImportOrders(c.Request.Context(), GetUserID(c), file, format)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}
