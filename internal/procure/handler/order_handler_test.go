package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/config"
	masterdataEntity "github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	rmarepo "github.com/plumped/InventoryPulse-sub000/internal/rma/repository"
	settingsEntity "github.com/plumped/InventoryPulse-sub000/internal/settings/entity"
	settingsRepo "github.com/plumped/InventoryPulse-sub000/internal/settings/repository"
	stockEntity "github.com/plumped/InventoryPulse-sub000/internal/stock/entity"
	stockRepo "github.com/plumped/InventoryPulse-sub000/internal/stock/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/testutil"
	"go.uber.org/zap"
)

func setupWorkflowTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	services := service.NewServices(service.Deps{
		DB:        db,
		Repos:     repository.NewRepositories(db),
		Products:  masterdataRepo.NewProductRepository(db),
		Suppliers: masterdataRepo.NewSupplierRepository(db),
		Stock:     stockRepo.NewStockRepository(db),
		Settings:  settingsRepo.NewSettingsRepository(db),
		RMA:       rmarepo.NewRMARepository(db),
		Workflow: config.WorkflowConfig{
			OrderApprovalRequired:   true,
			OrderApprovalThreshold:  1000,
			SmallOrderThreshold:     200,
			RequireSeparateApprover: true,
		},
		Logger: zap.NewNop(),
	})
	h := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")

	orders := api.Group("/purchase-orders")
	orders.GET("", h.Order.List)
	orders.POST("", h.Order.Create)
	orders.POST("/import", h.Order.Import)
	orders.GET("/:id", h.Order.Get)
	orders.GET("/:id/export", h.Order.Export)
	orders.PUT("/:id", h.Order.Update)
	orders.DELETE("/:id", h.Order.Delete)
	orders.POST("/:id/submit", h.Order.Submit)
	orders.POST("/:id/approve", h.Order.Approve)
	orders.POST("/:id/reject", h.Order.Reject)
	orders.POST("/:id/mark-sent", h.Order.MarkSent)
	orders.POST("/:id/items/:itemId/cancel", h.Order.CancelItem)
	orders.PUT("/:id/items/:itemId/cancel", h.Order.EditCancellation)
	orders.DELETE("/:id/items/:itemId/cancel", h.Order.RevertCancellation)
	orders.GET("/:id/splits", h.Split.List)
	orders.POST("/:id/splits", h.Split.Create)
	orders.POST("/:id/receive", h.Receipt.Receive)
	orders.GET("/:id/receipts", h.Receipt.List)
	api.PUT("/order-splits/:splitId/status", h.Split.UpdateStatus)
	api.DELETE("/order-splits/:splitId", h.Split.Delete)
	api.DELETE("/receipts/:receiptId", h.Receipt.Delete)
	suggestions := api.Group("/order-suggestions")
	suggestions.GET("", h.Suggestion.List)
	suggestions.POST("/refresh", h.Suggestion.Refresh)
	suggestions.POST("/create-orders", h.Suggestion.CreateOrders)
	templates := api.Group("/order-templates")
	templates.GET("", h.Template.List)
	templates.POST("", h.Template.Create)
	templates.GET("/:id", h.Template.Get)
	templates.PUT("/:id", h.Template.Update)
	templates.DELETE("/:id", h.Template.Delete)
	templates.POST("/process-recurring", h.Template.ProcessRecurring)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// seedMasterData creates a supplier, a default tax, a warehouse and one
// product with a supplier price. Returns supplier, product and warehouse IDs.
func seedMasterData(t *testing.T, env *testutil.TestEnv, sku string, price float64) (string, string, string) {
	t.Helper()

	supplierID := "sup-" + sku
	if err := env.DB.FirstOrCreate(&masterdataEntity.Supplier{
		ID:       supplierID,
		Name:     "Supplier " + sku,
		Email:    "orders@" + sku + ".test",
		IsActive: true,
	}, "id = ?", supplierID).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}

	if err := env.DB.FirstOrCreate(&masterdataEntity.Tax{
		ID:        "tax-default",
		Name:      "Standard",
		Rate:      0.19,
		IsDefault: true,
		IsActive:  true,
	}, "id = ?", "tax-default").Error; err != nil {
		t.Fatalf("Failed to seed tax: %v", err)
	}

	productID := "prod-" + sku
	if err := env.DB.Create(&masterdataEntity.Product{
		ID:       productID,
		SKU:      sku,
		Name:     "Product " + sku,
		Unit:     "pcs",
		IsActive: true,
	}).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}

	if err := env.DB.Create(&masterdataEntity.SupplierProduct{
		ID:            "sp-" + sku,
		SupplierID:    supplierID,
		ProductID:     productID,
		SupplierSKU:   "SUP-" + sku,
		PurchasePrice: price,
	}).Error; err != nil {
		t.Fatalf("Failed to seed supplier product: %v", err)
	}

	warehouseID := "wh-main"
	if err := env.DB.FirstOrCreate(&stockEntity.Warehouse{
		ID:       warehouseID,
		Code:     "MAIN",
		Name:     "Main Warehouse",
		IsActive: true,
	}, "id = ?", warehouseID).Error; err != nil {
		t.Fatalf("Failed to seed warehouse: %v", err)
	}

	return supplierID, productID, warehouseID
}

// createOrder creates an order over HTTP and returns its ID.
func createOrder(t *testing.T, env *testutil.TestEnv, token, supplierID, productID string, quantity, shipping float64) string {
	t.Helper()

	body := map[string]interface{}{
		"supplier_id":   supplierID,
		"shipping_cost": shipping,
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": quantity},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/purchase-orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create order failed: status=%d body=%s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	return data["id"].(string)
}

func loadOrder(t *testing.T, env *testutil.TestEnv, id string) *entity.PurchaseOrder {
	t.Helper()
	var order entity.PurchaseOrder
	if err := env.DB.Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		t.Fatalf("Failed to load order %s: %v", id, err)
	}
	return &order
}

func TestCreateOrderComputesTotals(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "TOT-001", 100)
	token := testutil.DefaultTestToken()

	// 4 x 100 with 19% default tax and 10 shipping
	orderID := createOrder(t, env, token, supplierID, productID, 4, 10)
	order := loadOrder(t, env, orderID)

	if order.Subtotal != 400 {
		t.Errorf("subtotal = %v, want 400", order.Subtotal)
	}
	if order.Tax != 76 {
		t.Errorf("tax = %v, want 76", order.Tax)
	}
	if order.Total != 486 {
		t.Errorf("total = %v, want 486 (subtotal + tax + shipping)", order.Total)
	}
	if order.Status != entity.OrderStatusDraft {
		t.Errorf("status = %s, want draft", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].SupplierSKU != "SUP-TOT-001" {
		t.Errorf("supplier SKU not resolved from supplier product: %+v", order.Items)
	}
}

func TestSubmitAutoApprovesBelowThreshold(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "AUTO-001", 100)
	token := testutil.DefaultTestToken()

	// Total 500 against threshold 1000: submit must auto-approve
	orderID := createOrder(t, env, token, supplierID, productID, 5, 0)

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/submit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Submit failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order := loadOrder(t, env, orderID)
	if order.Status != entity.OrderStatusApproved {
		t.Errorf("status = %s, want approved", order.Status)
	}
	// System auto-approval must not record an approver
	if order.ApprovedBy != "" {
		t.Errorf("approved_by = %q, want empty for auto-approval", order.ApprovedBy)
	}
	if order.ApprovedAt == nil {
		t.Error("approved_at should be set on auto-approval")
	}
}

func TestSelfApprovalForbidden(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "SELF-001", 100)
	creatorToken := testutil.GenerateTestToken("creator-001", "Creator", "c@test.com", nil, []string{"*"})
	approverToken := testutil.GenerateTestToken("approver-001", "Approver", "a@test.com", nil, []string{"order:approve"})

	// Total 2000 > threshold: stays pending after submit
	orderID := createOrder(t, env, creatorToken, supplierID, productID, 20, 0)
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/submit", nil, creatorToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Submit failed: status=%d body=%s", w.Code, w.Body.String())
	}
	if order := loadOrder(t, env, orderID); order.Status != entity.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}

	// Creator approving own order: 403
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/approve", nil, creatorToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("self approval: status=%d, want 403; body=%s", w.Code, w.Body.String())
	}

	// A different user with the approve permission succeeds
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/approve", nil, approverToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Approve failed: status=%d body=%s", w.Code, w.Body.String())
	}
	order := loadOrder(t, env, orderID)
	if order.Status != entity.OrderStatusApproved || order.ApprovedBy != "approver-001" {
		t.Errorf("status=%s approved_by=%s, want approved by approver-001", order.Status, order.ApprovedBy)
	}
}

func TestRejectReturnsOrderToDraft(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "REJ-001", 100)
	token := testutil.DefaultTestToken()

	orderID := createOrder(t, env, token, supplierID, productID, 20, 0)
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/submit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Submit failed: status=%d body=%s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/reject",
		map[string]interface{}{"reason": "价格偏高"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Reject failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order := loadOrder(t, env, orderID)
	if order.Status != entity.OrderStatusDraft {
		t.Errorf("status = %s, want draft after rejection", order.Status)
	}
	if order.Notes == "" {
		t.Error("rejection reason should be recorded in notes")
	}
}

func TestCancelItemRecalculatesTotals(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "CAN-001", 100)
	token := testutil.DefaultTestToken()

	orderID := createOrder(t, env, token, supplierID, productID, 10, 0)
	order := loadOrder(t, env, orderID)
	itemID := order.Items[0].ID

	// Cancel 4 of 10: effective quantity 6, totals follow
	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/purchase-orders/%s/items/%s/cancel", orderID, itemID),
		map[string]interface{}{"quantity": 4, "reason": "短期不需要"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Cancel failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order = loadOrder(t, env, orderID)
	item := order.Items[0]
	if item.Status != entity.ItemStatusPartiallyCanceled || item.CanceledQuantity != 4 {
		t.Errorf("item status=%s canceled=%v, want partially_canceled/4", item.Status, item.CanceledQuantity)
	}
	if item.EffectiveQuantity() != 6 {
		t.Errorf("effective quantity = %v, want 6", item.EffectiveQuantity())
	}
	if order.Subtotal != 600 {
		t.Errorf("subtotal = %v, want 600 after cancellation", order.Subtotal)
	}

	// Revert: back to the full quantity
	w = testutil.DoRequest(env.Router, http.MethodDelete,
		fmt.Sprintf("/api/v1/purchase-orders/%s/items/%s/cancel", orderID, itemID), nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Revert failed: status=%d body=%s", w.Code, w.Body.String())
	}
	order = loadOrder(t, env, orderID)
	if order.Items[0].Status != entity.ItemStatusActive || order.Subtotal != 1000 {
		t.Errorf("revert: status=%s subtotal=%v, want active/1000", order.Items[0].Status, order.Subtotal)
	}
}

func TestCancelAllItemsCancelsOrder(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "CAN-002", 100)
	token := testutil.DefaultTestToken()

	orderID := createOrder(t, env, token, supplierID, productID, 10, 0)
	order := loadOrder(t, env, orderID)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/purchase-orders/%s/items/%s/cancel", orderID, itemID),
		map[string]interface{}{"quantity": 10, "reason": "供应商停产"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Cancel failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order = loadOrder(t, env, orderID)
	if order.Status != entity.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled when all items are canceled", order.Status)
	}
}

func TestUpdateOnlyAllowedForDraft(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "UPD-001", 100)
	token := testutil.DefaultTestToken()

	orderID := createOrder(t, env, token, supplierID, productID, 5, 0)
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/submit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Submit failed: status=%d body=%s", w.Code, w.Body.String())
	}

	// Auto-approved order can no longer be edited
	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/purchase-orders/"+orderID,
		map[string]interface{}{"notes": "changed"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("update approved order: status=%d, want 400; body=%s", w.Code, w.Body.String())
	}
}

func TestOrderNumberContinuesFromSystemSettings(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "NUM-001", 100)
	token := testutil.DefaultTestToken()

	if err := env.DB.Create(&settingsEntity.SystemSettings{
		ID:                "sys-settings",
		OrderNumberPrefix: "PO-",
		NextOrderNumber:   7,
	}).Error; err != nil {
		t.Fatalf("Failed to seed system settings: %v", err)
	}

	day := time.Now().Format("20060102")

	// First order of the day starts at the stored sequence
	first := loadOrder(t, env, createOrder(t, env, token, supplierID, productID, 5, 0))
	if want := fmt.Sprintf("PO-%s-007", day); first.OrderNumber != want {
		t.Errorf("order number = %s, want %s", first.OrderNumber, want)
	}

	// Same-day orders continue from the highest existing number
	second := loadOrder(t, env, createOrder(t, env, token, supplierID, productID, 5, 0))
	if want := fmt.Sprintf("PO-%s-008", day); second.OrderNumber != want {
		t.Errorf("order number = %s, want %s", second.OrderNumber, want)
	}

	var ss settingsEntity.SystemSettings
	if err := env.DB.First(&ss, "id = ?", "sys-settings").Error; err != nil {
		t.Fatalf("Failed to load system settings: %v", err)
	}
	if ss.NextOrderNumber != 9 {
		t.Errorf("next_order_number = %d, want 9", ss.NextOrderNumber)
	}
}
