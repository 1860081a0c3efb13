package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/render"
	"github.com/segyhp/fatura-engine/pkg/response"
	"github.com/segyhp/fatura-engine/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// BillingService is the ledger surface the HTTP API exposes
type BillingService interface {
	RegisterPurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error)
	RegisterPayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error)
	DeactivatePurchase(ctx context.Context, ownerID string, purchaseID uuid.UUID) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.Purchase, error)
	ListPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error)
	ComputeBalance(ctx context.Context, ownerID string, asOf time.Time) (decimal.Decimal, error)
	BuildClosedStatement(ctx context.Context, ownerID string, month, year int) (*domain.Statement, error)
	BuildOpenStatement(ctx context.Context, ownerID string, asOf time.Time) (*domain.Statement, error)
	UpsertRecurringPurchase(ctx context.Context, request *domain.UpsertRecurringRequest) (*domain.RecurringPurchase, error)
	ListRecurringPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.RecurringPurchase, error)
	ApplyRecurring(ctx context.Context, ownerID string, period domain.Period) (*domain.ApplyRecurringResult, error)
	OpenPeriod(now time.Time) domain.Period
	Now() time.Time
}

type BillingHandler struct {
	service         BillingService
	loc             *time.Location
	messageMaxChars int
	logger          logging.Logger
}

func NewBillingHandler(service BillingService, loc *time.Location, messageMaxChars int, logger logging.Logger) *BillingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BillingHandler{
		service:         service,
		loc:             loc,
		messageMaxChars: messageMaxChars,
		logger:          logger,
	}
}

// RegisterRoutes mounts the ledger endpoints on r
func (h *BillingHandler) RegisterRoutes(r *mux.Router) {
	owner := r.PathPrefix("/owners/{ownerId}").Subrouter()

	owner.HandleFunc("/purchases", h.CreatePurchase).Methods(http.MethodPost)
	owner.HandleFunc("/purchases", h.ListPurchases).Methods(http.MethodGet)
	owner.HandleFunc("/purchases/{purchaseId}", h.DeactivatePurchase).Methods(http.MethodDelete)
	owner.HandleFunc("/payments", h.CreatePayment).Methods(http.MethodPost)
	owner.HandleFunc("/payments", h.ListPayments).Methods(http.MethodGet)
	owner.HandleFunc("/balance", h.GetBalance).Methods(http.MethodGet)
	owner.HandleFunc("/statements/open", h.GetOpenStatement).Methods(http.MethodGet)
	owner.HandleFunc("/recurring", h.CreateRecurring).Methods(http.MethodPost)
	owner.HandleFunc("/recurring", h.ListRecurring).Methods(http.MethodGet)
	owner.HandleFunc("/recurring/apply", h.ApplyRecurring).Methods(http.MethodPost)
	owner.HandleFunc("/recurring/{recurringId}", h.UpdateRecurring).Methods(http.MethodPut)
	owner.HandleFunc("/statements/{year:[0-9]+}/{month:[0-9]+}", h.GetClosedStatement).Methods(http.MethodGet)
}

func (h *BillingHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	request.OwnerID = mux.Vars(r)["ownerId"]

	purchase, err := h.service.RegisterPurchase(r.Context(), &request)
	if err != nil {
		h.fail(w, r, "Failed to register purchase", err)
		return
	}

	response.Created(w, purchase)
}

func (h *BillingHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	purchases, err := h.service.ListPurchases(r.Context(), mux.Vars(r)["ownerId"], includeInactive)
	if err != nil {
		h.fail(w, r, "Failed to list purchases", err)
		return
	}

	response.Success(w, purchases)
}

func (h *BillingHandler) DeactivatePurchase(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	purchaseID, err := uuid.Parse(vars["purchaseId"])
	if err != nil {
		response.BadRequest(w, "Invalid purchase ID", err)
		return
	}

	purchase, err := h.service.DeactivatePurchase(r.Context(), vars["ownerId"], purchaseID)
	if err != nil {
		h.fail(w, r, "Failed to deactivate purchase", err)
		return
	}

	response.Success(w, purchase)
}

func (h *BillingHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	request.OwnerID = mux.Vars(r)["ownerId"]

	payment, err := h.service.RegisterPayment(r.Context(), &request)
	if err != nil {
		h.fail(w, r, "Failed to register payment", err)
		return
	}

	response.Created(w, payment)
}

func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), mux.Vars(r)["ownerId"])
	if err != nil {
		h.fail(w, r, "Failed to list payments", err)
		return
	}

	response.Success(w, payments)
}

func (h *BillingHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]
	asOf, err := h.asOf(r)
	if err != nil {
		response.BadRequest(w, "Invalid as_of, expected RFC3339 or YYYY-MM-DD", err)
		return
	}

	balance, err := h.service.ComputeBalance(r.Context(), ownerID, asOf)
	if err != nil {
		h.fail(w, r, "Failed to compute balance", err)
		return
	}

	response.Success(w, domain.BalanceResponse{
		OwnerID: ownerID,
		AsOf:    asOf,
		Balance: balance,
		Status:  domain.BalanceStatus(balance),
	})
}

func (h *BillingHandler) GetOpenStatement(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		response.BadRequest(w, "Invalid as_of, expected RFC3339 or YYYY-MM-DD", err)
		return
	}

	statement, err := h.service.BuildOpenStatement(r.Context(), mux.Vars(r)["ownerId"], asOf)
	if err != nil {
		h.fail(w, r, "Failed to build open statement", err)
		return
	}

	h.writeStatement(w, r, statement)
}

func (h *BillingHandler) GetClosedStatement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, errYear := strconv.Atoi(vars["year"])
	month, errMonth := strconv.Atoi(vars["month"])
	if errYear != nil || errMonth != nil {
		response.BadRequest(w, "Invalid period", nil)
		return
	}

	statement, err := h.service.BuildClosedStatement(r.Context(), vars["ownerId"], month, year)
	if err != nil {
		h.fail(w, r, "Failed to build statement", err)
		return
	}

	h.writeStatement(w, r, statement)
}

func (h *BillingHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var request domain.UpsertRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	request.ID = nil
	request.OwnerID = mux.Vars(r)["ownerId"]

	template, err := h.service.UpsertRecurringPurchase(r.Context(), &request)
	if err != nil {
		h.fail(w, r, "Failed to create recurring purchase", err)
		return
	}

	response.Created(w, template)
}

func (h *BillingHandler) UpdateRecurring(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	recurringID, err := uuid.Parse(vars["recurringId"])
	if err != nil {
		response.BadRequest(w, "Invalid recurring purchase ID", err)
		return
	}

	var request domain.UpsertRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	request.ID = &recurringID
	request.OwnerID = vars["ownerId"]

	template, err := h.service.UpsertRecurringPurchase(r.Context(), &request)
	if err != nil {
		h.fail(w, r, "Failed to update recurring purchase", err)
		return
	}

	response.Success(w, template)
}

func (h *BillingHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	templates, err := h.service.ListRecurringPurchases(r.Context(), mux.Vars(r)["ownerId"], includeInactive)
	if err != nil {
		h.fail(w, r, "Failed to list recurring purchases", err)
		return
	}

	response.Success(w, templates)
}

// ApplyRecurring bills the owner's templates in the requested cycle, or in the
// open one when the body is empty.
func (h *BillingHandler) ApplyRecurring(w http.ResponseWriter, r *http.Request) {
	var request domain.ApplyRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	period := h.service.OpenPeriod(h.service.Now())
	if request.Cycle != "" {
		month, year, err := utils.ParseCycle(request.Cycle)
		if err != nil {
			h.fail(w, r, "Invalid cycle, expected MM/YYYY", err)
			return
		}
		period = domain.Period{Month: month, Year: year}
	}

	result, err := h.service.ApplyRecurring(r.Context(), mux.Vars(r)["ownerId"], period)
	if err != nil {
		h.fail(w, r, "Failed to apply recurring purchases", err)
		return
	}

	response.Success(w, result)
}

func (h *BillingHandler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := response.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), message, "path", r.URL.Path, "status", status, "error", err)
	}
	response.Error(w, status, message, err)
}

func (h *BillingHandler) writeStatement(w http.ResponseWriter, r *http.Request, statement *domain.Statement) {
	if r.URL.Query().Get("format") != "text" {
		response.Success(w, statement)
		return
	}

	response.Success(w, domain.StatementTextResponse{
		Statement: statement,
		Messages:  render.Statement(statement, h.messageMaxChars),
	})
}

// asOf reads the as_of query parameter, defaulting to the service clock.
// A bare date means the start of that day in the ledger time zone.
func (h *BillingHandler) asOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.service.Now().In(h.loc), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(h.loc), nil
	}
	return time.ParseInLocation("2006-01-02", raw, h.loc)
}
