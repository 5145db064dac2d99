package handler

import (
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	"github.com/gin-gonic/gin"
)

// SuggestionHandler 补货建议处理器
type SuggestionHandler struct {
	svc *service.SuggestionService
}

func NewSuggestionHandler(svc *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{svc: svc}
}

// List 当前建议集
// GET /api/v1/order-suggestions
func (h *SuggestionHandler) List(c *gin.Context) {
	suggestions, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, "获取补货建议失败: "+err.Error())
		return
	}
	Success(c, suggestions)
}

// Refresh 重新生成建议
// POST /api/v1/order-suggestions/refresh
func (h *SuggestionHandler) Refresh(c *gin.Context) {
	count, err := h.svc.Generate(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"count": count})
}

// CreateOrders 按建议下单
// POST /api/v1/order-suggestions/create-orders
func (h *SuggestionHandler) CreateOrders(c *gin.Context) {
	var req struct {
		SuggestionIDs []string `json:"suggestion_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.CreateOrders(c.Request.Context(), GetUserID(c), req.SuggestionIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, result)
}
