package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	rmaEntity "github.com/plumped/InventoryPulse-sub000/internal/rma/entity"
	stockEntity "github.com/plumped/InventoryPulse-sub000/internal/stock/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/testutil"
)

// sentOrder drives a fresh order through submit and mark-sent.
// Quantities below the approval threshold auto-approve on submit.
func sentOrder(t *testing.T, env *testutil.TestEnv, token, supplierID, productID string, quantity float64) *entity.PurchaseOrder {
	t.Helper()

	orderID := createOrder(t, env, token, supplierID, productID, quantity, 0)
	for _, step := range []string{"submit", "mark-sent"} {
		w := testutil.DoRequest(env.Router, http.MethodPost,
			fmt.Sprintf("/api/v1/purchase-orders/%s/%s", orderID, step), nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("%s failed: status=%d body=%s", step, w.Code, w.Body.String())
		}
	}
	return loadOrder(t, env, orderID)
}

func receiveLine(itemID, warehouseID string, qty float64) map[string]interface{} {
	return map[string]interface{}{
		"order_item_id": itemID,
		"quantity":      qty,
		"warehouse_id":  warehouseID,
	}
}

func warehouseQty(t *testing.T, env *testutil.TestEnv, productID, warehouseID string) float64 {
	t.Helper()
	var pw stockEntity.ProductWarehouse
	err := env.DB.Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).First(&pw).Error
	if err != nil {
		return 0
	}
	return pw.Quantity
}

func TestPartialReceiveUpdatesStatusAndStock(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "RCV-001", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 10)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive",
		map[string]interface{}{
			"lines": []map[string]interface{}{receiveLine(itemID, warehouseID, 6)},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Receive failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order = loadOrder(t, env, order.ID)
	if order.Status != entity.OrderStatusPartiallyReceived {
		t.Errorf("status = %s, want partially_received", order.Status)
	}
	if order.Items[0].QuantityReceived != 6 {
		t.Errorf("quantity_received = %v, want 6", order.Items[0].QuantityReceived)
	}
	if qty := warehouseQty(t, env, productID, warehouseID); qty != 6 {
		t.Errorf("warehouse quantity = %v, want 6", qty)
	}

	var movements []stockEntity.StockMovement
	if err := env.DB.Where("product_id = ?", productID).Find(&movements).Error; err != nil {
		t.Fatalf("Failed to load movements: %v", err)
	}
	if len(movements) != 1 || movements[0].MovementType != "in" || movements[0].Quantity != 6 {
		t.Errorf("unexpected stock movements: %+v", movements)
	}
}

func TestCancelThenFullReceiveMarksReceived(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "RCV-002", 50)
	token := testutil.DefaultTestToken()

	// Cancel 4 of 10 while still in draft, then send and receive the remaining 6
	orderID := createOrder(t, env, token, supplierID, productID, 10, 0)
	order := loadOrder(t, env, orderID)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/purchase-orders/%s/items/%s/cancel", orderID, itemID),
		map[string]interface{}{"quantity": 4, "reason": "需求减少"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Cancel failed: status=%d body=%s", w.Code, w.Body.String())
	}
	for _, step := range []string{"submit", "mark-sent"} {
		w = testutil.DoRequest(env.Router, http.MethodPost,
			fmt.Sprintf("/api/v1/purchase-orders/%s/%s", orderID, step), nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("%s failed: status=%d body=%s", step, w.Code, w.Body.String())
		}
	}

	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+orderID+"/receive",
		map[string]interface{}{
			"lines": []map[string]interface{}{receiveLine(itemID, warehouseID, 6)},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Receive failed: status=%d body=%s", w.Code, w.Body.String())
	}

	// 6 received against an effective quantity of 6 completes the order
	order = loadOrder(t, env, orderID)
	if order.Status != entity.OrderStatusReceived {
		t.Errorf("status = %s, want received", order.Status)
	}
}

func TestReceiveWithDefectCreatesRMADraft(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "RCV-003", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 5)
	itemID := order.Items[0].ID

	line := receiveLine(itemID, warehouseID, 5)
	line["has_defect"] = true
	line["defect_notes"] = "包装破损"
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive",
		map[string]interface{}{"lines": []map[string]interface{}{line}}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Receive failed: status=%d body=%s", w.Code, w.Body.String())
	}

	var drafts []rmaEntity.RMADraft
	if err := env.DB.Where("purchase_order_id = ?", order.ID).Find(&drafts).Error; err != nil {
		t.Fatalf("Failed to load RMA drafts: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Status != rmaEntity.RMADraftStatusPending {
		t.Fatalf("unexpected RMA drafts: %+v", drafts)
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if warnings, ok := data["warnings"].([]interface{}); !ok || len(warnings) == 0 {
		t.Errorf("expected a defect warning in the response, got %v", data["warnings"])
	}
}

func TestReceiveNothingReturnsWarningWithoutReceipt(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "RCV-004", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 5)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive",
		map[string]interface{}{
			"lines": []map[string]interface{}{receiveLine(itemID, warehouseID, 0)},
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Receive failed: status=%d body=%s", w.Code, w.Body.String())
	}

	var count int64
	env.DB.Model(&entity.PurchaseOrderReceipt{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 0 {
		t.Errorf("no receipt should be recorded, found %d", count)
	}
	if order = loadOrder(t, env, order.ID); order.Status != entity.OrderStatusSent {
		t.Errorf("status = %s, want sent to stay unchanged", order.Status)
	}
}

func TestDeleteReceiptReversesEverything(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "RCV-005", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 10)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive",
		map[string]interface{}{
			"lines": []map[string]interface{}{receiveLine(itemID, warehouseID, 10)},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Receive failed: status=%d body=%s", w.Code, w.Body.String())
	}
	if order = loadOrder(t, env, order.ID); order.Status != entity.OrderStatusReceived {
		t.Fatalf("status = %s, want received before reversal", order.Status)
	}

	var receipt entity.PurchaseOrderReceipt
	if err := env.DB.Where("order_id = ?", order.ID).First(&receipt).Error; err != nil {
		t.Fatalf("Failed to load receipt: %v", err)
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete,
		"/api/v1/receipts/"+receipt.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Delete receipt failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order = loadOrder(t, env, order.ID)
	if order.Status != entity.OrderStatusSent {
		t.Errorf("status = %s, want sent after reversal", order.Status)
	}
	if order.Items[0].QuantityReceived != 0 {
		t.Errorf("quantity_received = %v, want 0 after reversal", order.Items[0].QuantityReceived)
	}
	if qty := warehouseQty(t, env, productID, warehouseID); qty != 0 {
		t.Errorf("warehouse quantity = %v, want 0 after reversal", qty)
	}

	// The compensating movement is recorded rather than the original deleted
	var out int64
	env.DB.Model(&stockEntity.StockMovement{}).
		Where("product_id = ? AND movement_type = ?", productID, "out").Count(&out)
	if out != 1 {
		t.Errorf("expected one reversal movement, found %d", out)
	}
}

func TestSplitStaysPlannedUntilFullyReceived(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "SPL-001", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 5)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/splits",
		map[string]interface{}{
			"name":  "第一批",
			"items": []map[string]interface{}{{"order_item_id": itemID, "quantity": 5}},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create split failed: status=%d body=%s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	splitID := resp["data"].(map[string]interface{})["id"].(string)

	body := map[string]interface{}{
		"split_id": splitID,
		"lines":    []map[string]interface{}{receiveLine(itemID, warehouseID, 3)},
	}
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Receive failed: status=%d body=%s", w.Code, w.Body.String())
	}

	var split entity.OrderSplit
	if err := env.DB.Where("id = ?", splitID).First(&split).Error; err != nil {
		t.Fatalf("Failed to load split: %v", err)
	}
	if split.Status != entity.SplitStatusPlanned {
		t.Errorf("split status = %s, want planned while 2 units are outstanding", split.Status)
	}
	if order = loadOrder(t, env, order.ID); order.Status != entity.OrderStatusPartiallyReceived {
		t.Errorf("order status = %s, want partially_received", order.Status)
	}
}

func TestSplitCannotExceedOutstandingQuantity(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "SPL-002", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 5)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/splits",
		map[string]interface{}{
			"items": []map[string]interface{}{{"order_item_id": itemID, "quantity": 8}},
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized split: status=%d, want 400; body=%s", w.Code, w.Body.String())
	}
}

func TestSplitStatusTransitions(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "SPL-003", 50)
	token := testutil.DefaultTestToken()

	order := sentOrder(t, env, token, supplierID, productID, 5)
	itemID := order.Items[0].ID

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/splits",
		map[string]interface{}{
			"items": []map[string]interface{}{{"order_item_id": itemID, "quantity": 5}},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create split failed: status=%d body=%s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	splitID := resp["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order-splits/"+splitID+"/status",
		map[string]interface{}{"status": "in_transit"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("planned -> in_transit failed: status=%d body=%s", w.Code, w.Body.String())
	}

	// in_transit can only move to received
	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order-splits/"+splitID+"/status",
		map[string]interface{}{"status": "cancelled"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("in_transit -> cancelled: status=%d, want 400; body=%s", w.Code, w.Body.String())
	}
}

func TestReceiveLinesForSameItemShareOutstandingLimit(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, warehouseID := seedMasterData(t, env, "RCV-010", 50)
	token := testutil.DefaultTestToken()

	secondWarehouse := "wh-overflow"
	if err := env.DB.FirstOrCreate(&stockEntity.Warehouse{
		ID:       secondWarehouse,
		Code:     "OVFL",
		Name:     "Overflow Warehouse",
		IsActive: true,
	}, "id = ?", secondWarehouse).Error; err != nil {
		t.Fatalf("Failed to seed warehouse: %v", err)
	}

	order := sentOrder(t, env, token, supplierID, productID, 10)
	itemID := order.Items[0].ID

	// Each line alone stays under the outstanding 10, together they exceed it
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive",
		map[string]interface{}{
			"lines": []map[string]interface{}{
				receiveLine(itemID, warehouseID, 6),
				receiveLine(itemID, secondWarehouse, 6),
			},
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("over-receipt across lines: status=%d, want 400; body=%s", w.Code, w.Body.String())
	}

	order = loadOrder(t, env, order.ID)
	if order.Items[0].QuantityReceived != 0 {
		t.Errorf("quantity_received = %v, want 0 after rejected receive", order.Items[0].QuantityReceived)
	}
	if qty := warehouseQty(t, env, productID, warehouseID); qty != 0 {
		t.Errorf("warehouse quantity = %v, want 0 after rejected receive", qty)
	}

	// Splitting exactly the outstanding quantity across warehouses is allowed
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/purchase-orders/"+order.ID+"/receive",
		map[string]interface{}{
			"lines": []map[string]interface{}{
				receiveLine(itemID, warehouseID, 4),
				receiveLine(itemID, secondWarehouse, 6),
			},
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("split receive failed: status=%d body=%s", w.Code, w.Body.String())
	}

	order = loadOrder(t, env, order.ID)
	if order.Items[0].QuantityReceived != 10 {
		t.Errorf("quantity_received = %v, want 10", order.Items[0].QuantityReceived)
	}
	if order.Status != entity.OrderStatusReceived {
		t.Errorf("status = %s, want received", order.Status)
	}
}
