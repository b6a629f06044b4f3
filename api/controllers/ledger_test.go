package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcavanagh/orderdesk-backend/api/middleware"
	"github.com/rcavanagh/orderdesk-backend/internal/ledger"
	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	"github.com/rcavanagh/orderdesk-backend/pkg/pagination"
)

type stubLedgerService struct {
	createFn    func(ctx context.Context, input ledger.CreateEntryInput) (*models.LedgerEntry, error)
	listFn      func(ctx context.Context, orderID uuid.UUID, includeVoided bool) (*ledger.EntryList, error)
	approveFn   func(ctx context.Context, input ledger.ApproveInput) (*models.LedgerEntry, error)
	queryFn     func(ctx context.Context, filters ledger.ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error)
	repairAllFn func(ctx context.Context) error
}

func (s stubLedgerService) CreateEntry(ctx context.Context, input ledger.CreateEntryInput) (*models.LedgerEntry, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.LedgerEntry{ID: uuid.New()}, nil
}

func (s stubLedgerService) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: entryID}, nil
}

func (s stubLedgerService) ListEntries(ctx context.Context, orderID uuid.UUID, includeVoided bool) (*ledger.EntryList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, orderID, includeVoided)
	}
	return &ledger.EntryList{}, nil
}

func (s stubLedgerService) GetSummary(ctx context.Context, orderID uuid.UUID) (*ledger.OrderLedgerSummary, error) {
	return &ledger.OrderLedgerSummary{}, nil
}

func (s stubLedgerService) Verify(ctx context.Context, input ledger.VerifyInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.EntryStatusVerified}, nil
}

func (s stubLedgerService) Approve(ctx context.Context, input ledger.ApproveInput) (*models.LedgerEntry, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, input)
	}
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.EntryStatusApproved}, nil
}

func (s stubLedgerService) Reject(ctx context.Context, input ledger.RejectInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.EntryStatusRejected}, nil
}

func (s stubLedgerService) Void(ctx context.Context, input ledger.VoidInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.EntryStatusVoided}, nil
}

func (s stubLedgerService) Repair(ctx context.Context, orderID uuid.UUID) (*ledger.OrderLedgerSummary, error) {
	return &ledger.OrderLedgerSummary{}, nil
}

func (s stubLedgerService) RepairAll(ctx context.Context) error {
	if s.repairAllFn != nil {
		return s.repairAllFn(ctx)
	}
	return nil
}

func (s stubLedgerService) Query(ctx context.Context, filters ledger.ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error) {
	if s.queryFn != nil {
		return s.queryFn(ctx, filters, page)
	}
	return nil, 0, nil
}

func (s stubLedgerService) AuditByEntry(ctx context.Context, entryID uuid.UUID) ([]models.PaymentAuditEntry, error) {
	return nil, nil
}

func (s stubLedgerService) AuditByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAuditEntry, error) {
	return nil, nil
}

func (s stubLedgerService) IssueApprovalCode(ctx context.Context, entryID uuid.UUID, actorUserID uuid.UUID) (string, error) {
	return "CODE1234", nil
}

func authedRequest(t *testing.T, method, target string, body []byte, params map[string]string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, "staff")

	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestCreateLedgerEntry(t *testing.T) {
	orderID := uuid.New()
	var captured ledger.CreateEntryInput
	svc := stubLedgerService{
		createFn: func(ctx context.Context, input ledger.CreateEntryInput) (*models.LedgerEntry, error) {
			captured = input
			return &models.LedgerEntry{ID: uuid.New(), PaymentNumber: "PAY-00001"}, nil
		},
	}

	body := []byte(`{"transaction_type":"payment","amount":"1500.00","method":"check","category":"initial_deposit","notes":"first installment"}`)
	req := authedRequest(t, http.MethodPost, "/", body, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	CreateLedgerEntry(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID {
		t.Fatalf("expected order id %s got %s", orderID, captured.OrderID)
	}
	if captured.TransactionType != enums.TransactionTypePayment || captured.Method != enums.PaymentMethodCheck {
		t.Fatalf("unexpected enum mapping %v %v", captured.TransactionType, captured.Method)
	}
	if !captured.Amount.Equal(decimal.RequireFromString("1500.00")) {
		t.Fatalf("unexpected amount %s", captured.Amount)
	}
	if captured.ActorUserID == uuid.Nil {
		t.Fatalf("actor not taken from context")
	}
}

func TestCreateLedgerEntryRejectsUnknownFields(t *testing.T) {
	req := authedRequest(t, http.MethodPost, "/", []byte(`{"transaction_type":"payment","amount":"10","method":"check","bogus":true}`), map[string]string{"orderId": uuid.NewString()})
	resp := httptest.NewRecorder()
	CreateLedgerEntry(stubLedgerService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateLedgerEntryRequiresIdentity(t *testing.T) {
	body := []byte(`{"transaction_type":"payment","amount":"10","method":"check"}`)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	CreateLedgerEntry(stubLedgerService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListLedgerEntriesIncludeVoided(t *testing.T) {
	var gotVoided bool
	svc := stubLedgerService{
		listFn: func(ctx context.Context, orderID uuid.UUID, includeVoided bool) (*ledger.EntryList, error) {
			gotVoided = includeVoided
			return &ledger.EntryList{Entries: []models.LedgerEntry{{ID: uuid.New()}}}, nil
		},
	}

	req := authedRequest(t, http.MethodGet, "/?include_voided=true", nil, map[string]string{"orderId": uuid.NewString()})
	resp := httptest.NewRecorder()
	ListLedgerEntries(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !gotVoided {
		t.Fatalf("include_voided flag not forwarded")
	}

	var envelope struct {
		Data entryListResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Entries) != 1 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestApproveLedgerEntryForwardsRoleAndCode(t *testing.T) {
	entryID := uuid.New()
	var captured ledger.ApproveInput
	svc := stubLedgerService{
		approveFn: func(ctx context.Context, input ledger.ApproveInput) (*models.LedgerEntry, error) {
			captured = input
			return &models.LedgerEntry{ID: input.EntryID, Status: enums.EntryStatusApproved}, nil
		},
	}

	req := authedRequest(t, http.MethodPost, "/", []byte(`{"approval_code":"CODE1234"}`), map[string]string{"entryId": entryID.String()})
	resp := httptest.NewRecorder()
	ApproveLedgerEntry(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.EntryID != entryID || captured.ActorRole != "staff" || captured.ApprovalCode != "CODE1234" {
		t.Fatalf("unexpected approve input %+v", captured)
	}
}

func TestRejectLedgerEntryRequiresReason(t *testing.T) {
	req := authedRequest(t, http.MethodPost, "/", []byte(`{}`), map[string]string{"entryId": uuid.NewString()})
	resp := httptest.NewRecorder()
	RejectLedgerEntry(stubLedgerService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestQueryLedgerEntriesParsesFilters(t *testing.T) {
	var gotFilters ledger.ListFilters
	var gotPage pagination.Params
	svc := stubLedgerService{
		queryFn: func(ctx context.Context, filters ledger.ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error) {
			gotFilters = filters
			gotPage = page
			return []models.LedgerEntry{{ID: uuid.New()}}, 1, nil
		},
	}

	req := authedRequest(t, http.MethodGet, "/?status=pending&transaction_type=refund&search=PAY-000&limit=10&offset=20", nil, nil)
	resp := httptest.NewRecorder()
	QueryLedgerEntries(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if gotFilters.Status == nil || *gotFilters.Status != enums.EntryStatusPending {
		t.Fatalf("status filter not parsed: %+v", gotFilters)
	}
	if gotFilters.TransactionType == nil || *gotFilters.TransactionType != enums.TransactionTypeRefund {
		t.Fatalf("transaction type filter not parsed: %+v", gotFilters)
	}
	if gotFilters.Search != "PAY-000" {
		t.Fatalf("search filter not parsed: %q", gotFilters.Search)
	}
	if gotPage.Limit != 10 || gotPage.Offset != 20 {
		t.Fatalf("pagination not parsed: %+v", gotPage)
	}
}

func TestQueryLedgerEntriesInvalidStatus(t *testing.T) {
	req := authedRequest(t, http.MethodGet, "/?status=bogus", nil, nil)
	resp := httptest.NewRecorder()
	QueryLedgerEntries(stubLedgerService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetLedgerEntryInvalidID(t *testing.T) {
	req := authedRequest(t, http.MethodGet, "/", nil, map[string]string{"entryId": "not-a-uuid"})
	resp := httptest.NewRecorder()
	GetLedgerEntry(stubLedgerService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRepairAllLedgers(t *testing.T) {
	called := false
	svc := stubLedgerService{repairAllFn: func(ctx context.Context) error {
		called = true
		return nil
	}}

	req := authedRequest(t, http.MethodPost, "/", nil, nil)
	resp := httptest.NewRecorder()
	RepairAllLedgers(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatalf("repair sweep not invoked")
	}
}
