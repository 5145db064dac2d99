package handler

import (
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	"github.com/gin-gonic/gin"
)

// ReceiptHandler 收货处理器
type ReceiptHandler struct {
	svc *service.ReceiptService
}

func NewReceiptHandler(svc *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{svc: svc}
}

// Receive 记录收货
// POST /api/v1/purchase-orders/:id/receive
func (h *ReceiptHandler) Receive(c *gin.Context) {
	var req service.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Receive(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	if result.Receipt == nil {
		// 没有任何实际收货，作为警告而不是错误返回
		Success(c, result)
		return
	}
	Created(c, result)
}

// List 订单的收货记录
// GET /api/v1/purchase-orders/:id/receipts
func (h *ReceiptHandler) List(c *gin.Context) {
	receipts, err := h.svc.ListByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, receipts)
}

// Delete 删除收货记录并回滚库存效果
// DELETE /api/v1/receipts/:receiptId?delete_empty_split=true
func (h *ReceiptHandler) Delete(c *gin.Context) {
	deleteEmptySplit := c.Query("delete_empty_split") == "true"
	if err := h.svc.DeleteReceipt(c.Request.Context(), c.Param("receiptId"), deleteEmptySplit); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
