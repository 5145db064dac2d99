package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/testutil"
)

func createTemplate(t *testing.T, env *testutil.TestEnv, token string, body map[string]interface{}) string {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order-templates", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create template failed: status=%d body=%s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)
}

func TestTemplateCRUD(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "TPL-001", 30)
	token := testutil.DefaultTestToken()

	templateID := createTemplate(t, env, token, map[string]interface{}{
		"name":        "Monthly restock",
		"supplier_id": supplierID,
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 12},
		},
	})

	w := testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/order-templates/"+templateID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Get template failed: status=%d body=%s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order-templates/"+templateID,
		map[string]interface{}{"name": "Monthly restock v2"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Update template failed: status=%d body=%s", w.Code, w.Body.String())
	}

	var template entity.OrderTemplate
	if err := env.DB.Where("id = ?", templateID).First(&template).Error; err != nil {
		t.Fatalf("Failed to load template: %v", err)
	}
	if template.Name != "Monthly restock v2" {
		t.Errorf("name = %q, want renamed template", template.Name)
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete,
		"/api/v1/order-templates/"+templateID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Delete template failed: status=%d body=%s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/order-templates/"+templateID, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted template: status=%d, want 404", w.Code)
	}
}

func TestCreateTemplateRejectsInvalidFrequency(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "TPL-002", 30)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order-templates",
		map[string]interface{}{
			"name":                 "Bad frequency",
			"supplier_id":          supplierID,
			"is_recurring":         true,
			"recurrence_frequency": "fortnightly",
			"items": []map[string]interface{}{
				{"product_id": productID, "quantity": 1},
			},
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown frequency", w.Code)
	}
}

func TestProcessRecurringCreatesDraftAndAdvancesDate(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "TPL-003", 30)
	token := testutil.DefaultTestToken()

	due := time.Now().AddDate(0, 0, -3).Format("2006-01-02")
	templateID := createTemplate(t, env, token, map[string]interface{}{
		"name":                 "Weekly restock",
		"supplier_id":          supplierID,
		"is_recurring":         true,
		"recurrence_frequency": "weekly",
		"next_order_date":      due,
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 12},
		},
	})

	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order-templates/process-recurring", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Process recurring failed: status=%d body=%s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["created"].(float64) != 1 {
		t.Fatalf("created = %v, want 1; body=%s", data["created"], w.Body.String())
	}

	var orders []entity.PurchaseOrder
	if err := env.DB.Preload("Items").Where("supplier_id = ?", supplierID).Find(&orders).Error; err != nil {
		t.Fatalf("Failed to load orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	if orders[0].Status != entity.OrderStatusDraft {
		t.Errorf("status = %s, want draft", orders[0].Status)
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].QuantityOrdered != 12 {
		t.Errorf("unexpected items: %+v", orders[0].Items)
	}

	// The next order date has been pushed past now
	var template entity.OrderTemplate
	if err := env.DB.Where("id = ?", templateID).First(&template).Error; err != nil {
		t.Fatalf("Failed to load template: %v", err)
	}
	if template.NextOrderDate == nil || !template.NextOrderDate.After(time.Now()) {
		t.Errorf("next_order_date = %v, want a future date", template.NextOrderDate)
	}

	// A second run finds nothing due
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order-templates/process-recurring", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Second run failed: status=%d body=%s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["created"].(float64) != 0 {
		t.Errorf("second run created = %v, want 0", data["created"])
	}
}

func TestProcessRecurringSkipsInactiveTemplates(t *testing.T) {
	env := setupWorkflowTest(t)
	supplierID, productID, _ := seedMasterData(t, env, "TPL-004", 30)
	token := testutil.DefaultTestToken()

	due := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	templateID := createTemplate(t, env, token, map[string]interface{}{
		"name":                 "Paused restock",
		"supplier_id":          supplierID,
		"is_recurring":         true,
		"recurrence_frequency": "daily",
		"next_order_date":      due,
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 1},
		},
	})
	w := testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order-templates/"+templateID,
		map[string]interface{}{"is_active": false}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Deactivate failed: status=%d body=%s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order-templates/process-recurring", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Process recurring failed: status=%d body=%s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["created"].(float64) != 0 {
		t.Errorf("created = %v, want 0 for inactive templates", data["created"])
	}
}
