package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/service"
	"inventoryledger/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("LEDGER_SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("LEDGER_SEED_CASHIER_PASSWORD", "cashier123")

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, service.Options{})
	auth, err := NewAuthManager(context.Background(), testSecret, time.Hour, repo)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	return New(svc, auth, "*", zap.NewNop())
}

func login(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func loginAsAdmin(t *testing.T, api *API) string {
	return login(t, api, "admin", "admin123")
}

func loginAsCashier(t *testing.T, api *API) string {
	return login(t, api, "cashier", "cashier123")
}

// call sends a JSON request with a bearer token and decodes the JSON reply.
func call(t *testing.T, handler http.Handler, method string, path string, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload == nil {
		body = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return rec.Code, out
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	code, body := call(t, api.Handler(), http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	code, body := call(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %v)", code, body)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}

	code, _ = call(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", code)
	}
	if body["details"] == nil {
		t.Fatalf("expected validation details, got %v", body)
	}
}

func TestRoutesRequireAuthAndRole(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	code, _ := call(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	cashier := loginAsCashier(t, api)
	code, body := call(t, handler, http.MethodGet, "/api/v1/products", cashier, nil)
	if code != http.StatusOK || body["products"] == nil {
		t.Fatalf("expected products for cashier, got %d %v", code, body)
	}

	code, _ = call(t, handler, http.MethodGet, "/api/v1/purchase-orders", cashier, nil)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on purchase orders, got %d", code)
	}

	code, body = call(t, handler, http.MethodPatch, "/api/v1/products/prd-coffee", cashier, map[string]string{"price": "9"})
	if code != http.StatusForbidden || body["kind"] != string(domain.KindForbidden) {
		t.Fatalf("expected FORBIDDEN for cashier repricing, got %d %v", code, body)
	}
}

func TestSalesOrderStatusFlow(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, api)

	create := func(qty int) string {
		t.Helper()
		code, body := call(t, handler, http.MethodPost, "/api/v1/sales-orders", token, map[string]any{
			"type":                "sale",
			"source_warehouse_id": memory.SeedWarehouseMain,
			"payment_method":      "cash",
			"items":               []map[string]any{{"product_id": "prd-tea", "quantity": qty, "price": "12"}},
		})
		if code != http.StatusCreated {
			t.Fatalf("create sales order: %d %v", code, body)
		}
		return body["sales_order"].(map[string]any)["id"].(string)
	}

	okID := create(20)
	code, body := call(t, handler, http.MethodPost, "/api/v1/sales-orders/"+okID+"/status", token, map[string]string{"status": "completed"})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", code, body)
	}
	if body["stock_applied"] != true {
		t.Fatalf("expected stock to be applied, got %v", body)
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/sales-orders/"+okID+"/status", token, map[string]string{"status": "processing"})
	if code != http.StatusUnprocessableEntity || body["kind"] != string(domain.KindInvalidTransition) {
		t.Fatalf("expected 422 INVALID_TRANSITION, got %d %v", code, body)
	}

	shortID := create(31)
	code, body = call(t, handler, http.MethodPost, "/api/v1/sales-orders/"+shortID+"/status", token, map[string]string{"status": "shipped"})
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %v", code, body)
	}
	if body["kind"] != string(domain.KindInsufficientStock) || body["entity_id"] != "prd-tea" || body["retryable"] != true {
		t.Fatalf("unexpected insufficient stock body %v", body)
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/sales-orders/so-missing/status", token, map[string]string{"status": "completed"})
	if code != http.StatusNotFound || body["kind"] != string(domain.KindOrderNotFound) {
		t.Fatalf("expected 404 ORDER_NOT_FOUND, got %d %v", code, body)
	}
}

func TestShiftOpenAndClose(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, api)

	code, body := call(t, handler, http.MethodPost, "/api/v1/shifts/open", token, map[string]any{"opening_balance": "100"})
	if code != http.StatusCreated {
		t.Fatalf("open shift: %d %v", code, body)
	}
	shiftID := body["shift"].(map[string]any)["id"].(string)

	code, body = call(t, handler, http.MethodGet, "/api/v1/shifts/active", token, nil)
	if code != http.StatusOK || body["shift"].(map[string]any)["id"] != shiftID {
		t.Fatalf("active shift: %d %v", code, body)
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/shifts/"+shiftID+"/close", token, map[string]any{"counted_cash": "95.5"})
	if code != http.StatusOK {
		t.Fatalf("close shift: %d %v", code, body)
	}
	summary := body["summary"].(map[string]any)
	if summary["difference"] != "-4.5" {
		t.Fatalf("expected difference -4.5, got %v", summary["difference"])
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/shifts/"+shiftID+"/close", token, map[string]any{"counted_cash": "95.5"})
	if code != http.StatusConflict || body["kind"] != string(domain.KindShiftAlreadyClosed) {
		t.Fatalf("expected 409 SHIFT_ALREADY_CLOSED, got %d %v", code, body)
	}

	code, _ = call(t, handler, http.MethodGet, "/api/v1/shifts/active", token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected no active shift after close, got %d", code)
	}
}

func TestPurchaseOrderValidationAndFeasibility(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, api)

	code, body := call(t, handler, http.MethodPost, "/api/v1/purchase-orders", token, map[string]any{
		"destination_warehouse_id": memory.SeedWarehouseMain,
	})
	if code != http.StatusBadRequest || body["details"] == nil {
		t.Fatalf("expected 400 with validation details, got %d %v", code, body)
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/purchase-orders", token, map[string]any{
		"destination_warehouse_id": memory.SeedWarehouseMain,
		"items": []map[string]any{
			{"product_id": "prd-coffee", "quantity": 10, "price": "5", "new_selling_price": "9"},
			{"product_id": "prd-tea", "quantity": 5, "price": "10", "new_selling_price": "18"},
		},
		"expenses": []map[string]any{{"description": "freight", "amount": "50"}},
	})
	if code != http.StatusCreated {
		t.Fatalf("create purchase order: %d %v", code, body)
	}
	poID := body["purchase_order"].(map[string]any)["id"].(string)

	for _, status := range []string{"ordered", "received"} {
		code, body = call(t, handler, http.MethodPost, "/api/v1/purchase-orders/"+poID+"/status", token, map[string]string{"status": status})
		if code != http.StatusOK {
			t.Fatalf("move to %s: %d %v", status, code, body)
		}
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/feasibility-studies", token, map[string]any{
		"source_type":       "purchase_order",
		"purchase_order_id": poID,
	})
	if code != http.StatusCreated {
		t.Fatalf("build study: %d %v", code, body)
	}
	totals := body["study"].(map[string]any)["totals"].(map[string]any)
	if totals["average_margin_percent"] != "16.67" {
		t.Fatalf("expected margin rounded to 16.67, got %v", totals["average_margin_percent"])
	}

	code, body = call(t, handler, http.MethodPost, "/api/v1/feasibility-studies", token, map[string]any{
		"source_type": "purchase_order",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 when purchase_order_id is missing, got %d %v", code, body)
	}

	code, _ = call(t, handler, http.MethodDelete, "/api/v1/feasibility-studies/PO-"+poID, token, nil)
	if code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", code)
	}
	code, _ = call(t, handler, http.MethodGet, "/api/v1/feasibility-studies/PO-"+poID, token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestLandedCostPreview(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	code, body := call(t, api.Handler(), http.MethodPost, "/api/v1/landed-cost/preview", token, map[string]any{
		"items":    []map[string]any{{"quantity": 10, "unit_cost": "5"}, {"quantity": 5, "unit_cost": "10"}},
		"expenses": []string{"50"},
	})
	if code != http.StatusOK {
		t.Fatalf("preview: %d %v", code, body)
	}
	lines := body["allocation"].(map[string]any)["lines"].([]any)
	if got := lines[1].(map[string]any)["final_unit_cost"]; got != "15" {
		t.Fatalf("expected final unit cost 15, got %v", got)
	}
}
