package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"brrowbooking/internal/db"
	apperrors "brrowbooking/internal/errors"
	"brrowbooking/internal/service"
)

// SupportHandler exposes the staff escalation queue. Transactions in
// confirmation_failed only leave that state through these endpoints.
type SupportHandler struct {
	Support  *service.SupportService
	Auth     service.SupportAuthService
	validate *validator.Validate
}

func NewSupportHandler(support *service.SupportService, auth service.SupportAuthService) *SupportHandler {
	return &SupportHandler{Support: support, Auth: auth, validate: validator.New()}
}

func (h *SupportHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.Auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, apperrors.ErrUnauthorized("Invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// CreateUser registers a new support staff account. Reachable only through
// the JWT-protected subrouter, so an existing staff member must create it.
func (h *SupportHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateSupportUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Auth.CreateUser(req.Email, req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ListTransactions lists the escalation queue by default; the state filter
// widens it for investigation.
func (h *SupportHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	date := r.URL.Query().Get("date")

	var txs []db.Transaction
	var err error
	if state == "" {
		txs, err = h.Support.ListEscalations(date)
	} else {
		txs, err = h.Support.ListTransactions(state, date)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		responses = append(responses, toTransactionResponse(&txs[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *SupportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["id"]

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.Support.Resolve(r.Context(), transactionID, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}
