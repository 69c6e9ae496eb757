package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/categorize"
	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore()
	ledger := services.NewLedger(store, categorize.New(store), nil)
	return NewServer(":0", ledger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func createTx(t *testing.T, s *Server, body map[string]any) transactionResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var tx transactionResponse
	decode(t, rec, &tx)
	return tx
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, rec.Code)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	s := newTestServer(t)

	tx := createTx(t, s, map[string]any{
		"date":           "2025-05-01",
		"details":        "Telco Co",
		"amount":         "-90.00",
		"category":       core.CategoryBills,
		"bank":           "first-national",
		"statement_type": core.StatementImported,
	})
	if tx.ID == "" || tx.TransactionType != "Debit" {
		t.Fatalf("unexpected created tx %+v", tx)
	}
	// Wire amount is the unsigned magnitude.
	if tx.Amount != 90.0 {
		t.Fatalf("amount = %v, want 90", tx.Amount)
	}
	if tx.Date != "2025-05-01" {
		t.Fatalf("date = %q", tx.Date)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var list []transactionResponse
	decode(t, rec, &list)
	if len(list) != 1 || list[0].ID != tx.ID {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestListMonthFilter(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, map[string]any{"date": "2025-05-01", "details": "in may", "amount": "-1.00"})
	createTx(t, s, map[string]any{"date": "2025-04-30", "details": "in april", "amount": "-2.00"})

	rec := doJSON(t, s, http.MethodGet, "/api/transactions?month=2025-05", nil)
	var list []transactionResponse
	decode(t, rec, &list)
	if len(list) != 1 || list[0].Details != "in may" {
		t.Fatalf("month filter failed: %+v", list)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?month=may-2025", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month returned %d", rec.Code)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("empty list must serialize as [], got %q", got)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"zero amount", map[string]any{"date": "2025-05-01", "details": "x", "amount": "0"}, http.StatusUnprocessableEntity},
		{"missing details", map[string]any{"date": "2025-05-01", "amount": "1.00"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"date": "yesterday", "details": "x", "amount": "1.00"}, http.StatusUnprocessableEntity},
		{"bad type", map[string]any{"date": "2025-05-01", "details": "x", "amount": "1.00", "transaction_type": "Sideways"}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{"date": "2025-05-01", "details": "x", "amount": "1.00", "bogus": true}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("got %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}

	// Malformed JSON is a 400.
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON returned %d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, map[string]any{"date": "2025-05-01", "details": "payroll deposit", "amount": "2500.00", "category": core.CategoryIncome})
	createTx(t, s, map[string]any{"date": "2025-05-02", "details": "telco", "amount": "-90.00", "category": core.CategoryBills})

	rec := doJSON(t, s, http.MethodGet, "/api/transactions/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary returned %d", rec.Code)
	}
	var got summaryResponse
	decode(t, rec, &got)
	if got.TotalIncome != 2500 || got.TotalExpenses != 90 || got.NetBalance != 2410 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestDailyGroupsAndFilter(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, map[string]any{"date": "2025-05-01", "details": "payroll deposit", "amount": "50.00", "category": core.CategoryIncome})
	createTx(t, s, map[string]any{"date": "2025-05-01", "details": "grocer", "amount": "-20.00", "category": core.CategoryFood})
	createTx(t, s, map[string]any{"date": "2025-05-03", "details": "telco", "amount": "-90.00", "category": core.CategoryBills})

	rec := doJSON(t, s, http.MethodGet, "/api/transactions/daily", nil)
	var groups []dateGroupResponse
	decode(t, rec, &groups)
	if len(groups) != 2 || groups[0].Date != "2025-05-03" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if groups[1].Total != 30.0 {
		t.Fatalf("same-day total = %v, want 30", groups[1].Total)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions/daily?filter=expenses", nil)
	decode(t, rec, &groups)
	for _, g := range groups {
		for _, tx := range g.Transactions {
			if tx.TransactionType != "Debit" {
				t.Fatalf("credit leaked into expenses view: %+v", tx)
			}
		}
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions/daily?filter=sideways", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter returned %d", rec.Code)
	}
}

func TestRollups(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, map[string]any{"date": "2025-05-01", "details": "telco", "amount": "-90.00", "category": core.CategoryBills})

	rec := doJSON(t, s, http.MethodGet, "/api/transactions/rollups/categories", nil)
	var rollups []rollupResponse
	decode(t, rec, &rollups)
	if len(rollups) != 1 || rollups[0].Label != core.CategoryBills {
		t.Fatalf("unexpected rollups %+v", rollups)
	}
	if rollups[0].Amount != -90.0 || rollups[0].PercentageOfTotal != 100.0 {
		t.Fatalf("unexpected rollup values %+v", rollups[0])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions/rollups/merchants", nil)
	decode(t, rec, &rollups)
	if len(rollups) != 1 || rollups[0].Label != "telco" {
		t.Fatalf("unexpected merchant rollups %+v", rollups)
	}
}

func TestUpdateCategoryViaQueryParam(t *testing.T) {
	s := newTestServer(t)
	tx := createTx(t, s, map[string]any{"date": "2025-05-01", "details": "mystery", "amount": "-5.00"})

	rec := doJSON(t, s, http.MethodPut,
		fmt.Sprintf("/api/transactions/%s/category?category=%s", tx.ID, core.CategoryFood), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}
	var got transactionResponse
	decode(t, rec, &got)
	if got.Category != core.CategoryFood {
		t.Fatalf("category not updated: %+v", got)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/transactions/ghost/category?category=Food", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id returned %d", rec.Code)
	}
}

func TestSwitchTypeFlipsWireAmount(t *testing.T) {
	s := newTestServer(t)
	tx := createTx(t, s, map[string]any{"date": "2025-05-01", "details": "telco", "amount": "-90.00", "category": core.CategoryBills})

	rec := doJSON(t, s, http.MethodPost,
		fmt.Sprintf("/api/transactions/%s/type?new_type=Credit", tx.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("switch returned %d: %s", rec.Code, rec.Body.String())
	}
	var got transactionResponse
	decode(t, rec, &got)
	if got.TransactionType != "Credit" || got.Amount != 90.0 {
		t.Fatalf("unexpected switched tx %+v", got)
	}

	rec = doJSON(t, s, http.MethodPost,
		fmt.Sprintf("/api/transactions/%s/type?new_type=Sideways", tx.ID), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid type returned %d", rec.Code)
	}
}

func TestVendorMappingsAndRecategorize(t *testing.T) {
	s := newTestServer(t)
	tx := createTx(t, s, map[string]any{"date": "2025-05-01", "details": "grocer mart #42", "amount": "-5.00"})
	if tx.Category != core.CategoryUncategorized {
		t.Fatalf("expected fallback category, got %+v", tx)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/vendor-mappings",
		map[string]any{"vendor": "Grocer Mart", "category": core.CategoryFood})
	if rec.Code != http.StatusCreated {
		t.Fatalf("set mapping returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/vendor-mappings", nil)
	var mappings map[string]string
	decode(t, rec, &mappings)
	if mappings["grocer mart"] != core.CategoryFood {
		t.Fatalf("mapping not listed under normalized key: %+v", mappings)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions/recategorize", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recategorize returned %d", rec.Code)
	}
	var result struct {
		Total   int `json:"total"`
		Updated int `json:"updated"`
	}
	decode(t, rec, &result)
	if result.Total != 1 || result.Updated != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions/"+tx.ID, nil)
	var got transactionResponse
	decode(t, rec, &got)
	if got.Category != core.CategoryFood {
		t.Fatalf("recategorize did not apply: %+v", got)
	}
}

func TestListCategories(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/categories", nil)
	var categories []string
	decode(t, rec, &categories)
	if len(categories) == 0 || categories[len(categories)-1] != core.CategoryUncategorized {
		t.Fatalf("unexpected categories %+v", categories)
	}
}
