package handler

import (
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	"github.com/gin-gonic/gin"
)

// SplitHandler 分批发货处理器
type SplitHandler struct {
	svc *service.SplitService
}

func NewSplitHandler(svc *service.SplitService) *SplitHandler {
	return &SplitHandler{svc: svc}
}

// List 订单的分批列表
// GET /api/v1/purchase-orders/:id/splits
func (h *SplitHandler) List(c *gin.Context) {
	splits, err := h.svc.ListByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, splits)
}

// Create 创建分批
// POST /api/v1/purchase-orders/:id/splits
func (h *SplitHandler) Create(c *gin.Context) {
	var req service.CreateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	split, err := h.svc.Create(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, split)
}

// UpdateStatus 分批状态流转
// PUT /api/v1/order-splits/:splitId/status
func (h *SplitHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	split, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("splitId"), req.Status)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, split)
}

// Delete 删除分批
// DELETE /api/v1/order-splits/:splitId
func (h *SplitHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("splitId")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
