package handler

import (
	"errors"
	"strconv"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	"github.com/gin-gonic/gin"
)

// Handlers 采购工作流处理器集合
type Handlers struct {
	Order      *OrderHandler
	Split      *SplitHandler
	Receipt    *ReceiptHandler
	Suggestion *SuggestionHandler
	Template   *TemplateHandler
}

// NewHandlers 创建采购工作流处理器集合
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Order:      NewOrderHandler(services.Order, services.Import),
		Split:      NewSplitHandler(services.Split),
		Receipt:    NewReceiptHandler(services.Receipt),
		Suggestion: NewSuggestionHandler(services.Suggestion),
		Template:   NewTemplateHandler(services.Template),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Fail 按错误类型映射HTTP响应：
// 守卫失败 400、权限不足 403、记录不存在 404，其余 500。
func Fail(c *gin.Context, err error) {
	var guardErr *service.GuardError
	if errors.As(err, &guardErr) {
		BadRequest(c, guardErr.Error())
		return
	}
	var permErr *service.PermissionError
	if errors.As(err, &permErr) {
		Forbidden(c, permErr.Error())
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, "记录不存在")
		return
	}
	InternalError(c, err.Error())
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetUserEmail(c *gin.Context) string {
	email, _ := c.Get("user_email")
	if e, ok := email.(string); ok {
		return e
	}
	return ""
}

func GetPermissions(c *gin.Context) []string {
	perms, _ := c.Get("permissions")
	if p, ok := perms.([]string); ok {
		return p
	}
	return nil
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
