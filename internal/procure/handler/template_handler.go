package handler

import (
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 订单模板处理器
type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// List 模板列表
// GET /api/v1/order-templates
func (h *TemplateHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	templates, total, err := h.svc.List(c.Request.Context(), page, pageSize)
	if err != nil {
		InternalError(c, "获取模板列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(templates, page, pageSize, total))
}

// Get 模板详情
// GET /api/v1/order-templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	template, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, template)
}

// Create 创建模板
// POST /api/v1/order-templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	template, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, template)
}

// Update 更新模板
// PUT /api/v1/order-templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	template, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, template)
}

// Delete 删除模板
// DELETE /api/v1/order-templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// ProcessRecurring 处理到期的定期模板
// POST /api/v1/order-templates/process-recurring
func (h *TemplateHandler) ProcessRecurring(c *gin.Context) {
	result, err := h.svc.ProcessRecurring(c.Request.Context(), time.Now())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}
