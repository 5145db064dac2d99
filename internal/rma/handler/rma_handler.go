package handler

import (
	"github.com/plumped/InventoryPulse-sub000/internal/rma/service"
	"github.com/gin-gonic/gin"
)

// RMAHandler 退货单处理器。
// 只暴露采购工作流需要的操作：查看/转换草稿、关闭RMA。
type RMAHandler struct {
	svc *service.RMAService
}

func NewRMAHandler(svc *service.RMAService) *RMAHandler {
	return &RMAHandler{svc: svc}
}

// === 响应辅助函数（与采购模块保持一致） ===

type response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(200, response{Code: 0, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(201, response{Code: 0, Message: "success", Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(400, response{Code: 40000, Message: message})
}

// ListDrafts 查询订单的待处理RMA草稿
func (h *RMAHandler) ListDrafts(c *gin.Context) {
	drafts, err := h.svc.ListDrafts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(500, response{Code: 50000, Message: err.Error()})
		return
	}
	success(c, drafts)
}

// CreateFromDrafts 将订单的待处理草稿转换为正式RMA
func (h *RMAHandler) CreateFromDrafts(c *gin.Context) {
	userID, _ := c.Get("user_id")
	uid, _ := userID.(string)

	rma, err := h.svc.CreateFromDrafts(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	created(c, rma)
}

// Resolve 关闭RMA
func (h *RMAHandler) Resolve(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数格式错误: "+err.Error())
		return
	}

	if err := h.svc.Resolve(c.Request.Context(), c.Param("rmaId"), req.Status); err != nil {
		badRequest(c, err.Error())
		return
	}
	success(c, nil)
}
