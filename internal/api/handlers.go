// Package api exposes the banking operations over HTTP and maps domain
// failures to status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mkarsten/bankledger/internal/domain"
	"github.com/mkarsten/bankledger/internal/models"
	"github.com/mkarsten/bankledger/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	accounts  *service.AccountService
	transfers *service.TransferService
	logger    *zap.Logger
}

func NewHandler(accounts *service.AccountService, transfers *service.TransferService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{accounts: accounts, transfers: transfers, logger: logger}
}

// Router wires all routes, including health and metrics.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/accounts", h.CreateAccountHandler).Methods("POST")
	apiV1.HandleFunc("/accounts/{iban}", h.GetAccountHandler).Methods("GET")
	apiV1.HandleFunc("/accounts/{iban}/credit", h.CreditHandler).Methods("POST")
	apiV1.HandleFunc("/accounts/{iban}/debit", h.DebitHandler).Methods("POST")
	apiV1.HandleFunc("/accounts/{iban}/transactions", h.ListTransactionsHandler).Methods("GET")
	apiV1.HandleFunc("/transfers", h.CreateTransferHandler).Methods("POST")
	return r
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/accounts"))
	defer timer.ObserveDuration()

	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts")
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.IBAN, req.OwnerName)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/accounts")
		return
	}
	h.respondJSON(w, http.StatusCreated, models.AccountResponseFrom(account), "POST", "/accounts")
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	iban := mux.Vars(r)["iban"]

	account, err := h.accounts.GetAccount(r.Context(), iban)
	if err != nil {
		h.respondDomainError(w, err, "GET", "/accounts/{iban}")
		return
	}
	h.respondJSON(w, http.StatusOK, models.AccountResponseFrom(account), "GET", "/accounts/{iban}")
}

func (h *Handler) CreditHandler(w http.ResponseWriter, r *http.Request) {
	h.handleBooking(w, r, h.accounts.Credit, "/accounts/{iban}/credit")
}

func (h *Handler) DebitHandler(w http.ResponseWriter, r *http.Request) {
	h.handleBooking(w, r, h.accounts.Debit, "/accounts/{iban}/debit")
}

func (h *Handler) handleBooking(w http.ResponseWriter, r *http.Request, book service.BookingFunc, endpoint string) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	iban := mux.Vars(r)["iban"]

	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	transaction, err := book(r.Context(), iban, req.Amount, req.Reference)
	if err != nil {
		h.respondDomainError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, models.TransactionResponseFrom(transaction), "POST", endpoint)
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	iban := mux.Vars(r)["iban"]

	transactions, err := h.accounts.ListTransactions(r.Context(), iban)
	if err != nil {
		h.respondDomainError(w, err, "GET", "/accounts/{iban}/transactions")
		return
	}

	resp := make([]models.TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, models.TransactionResponseFrom(t))
	}
	h.respondJSON(w, http.StatusOK, resp, "GET", "/accounts/{iban}/transactions")
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers")
		return
	}

	result, err := h.transfers.Transfer(r.Context(), req.FromIBAN, req.ToIBAN, req.Amount, req.Reference)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/transfers")
		return
	}
	h.respondJSON(w, http.StatusCreated, models.TransferResponseFrom(result), "POST", "/transfers")
}

// respondDomainError translates a failure kind into a status code. Callers
// branch on error identity, never on message text.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrDuplicateAccount),
		errors.Is(err, domain.ErrTransferConflict):
		h.respondError(w, http.StatusConflict, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrSameAccountTransfer),
		errors.Is(err, domain.ErrInvalidIBAN),
		errors.Is(err, domain.ErrInvalidOwnerName):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	default:
		h.logger.Error("request failed", zap.String("endpoint", endpoint), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}
