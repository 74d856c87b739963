package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/registrar"
	"github.com/starford/othala/internal/reward"
)

// Handler holds API route handlers.
type Handler struct {
	registrar *registrar.Service
	rewards   *reward.Service
}

// NewHandler creates a new Handler.
func NewHandler(reg *registrar.Service, rwd *reward.Service) *Handler {
	return &Handler{registrar: reg, rewards: rwd}
}

// RegisterWork handles POST /works.
func (h *Handler) RegisterWork(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RegisterWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Caller == "" || req.WorkID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("caller and work_id are required"))
		return
	}

	work, err := h.registrar.RegisterWork(r.Context(), req.Caller, req.WorkID, req.MetadataPointer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, WorkResponse{Work: *work})
}

// GetWork handles GET /works/{workID}.
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	workID := chi.URLParam(r, "workID")
	work, err := h.registrar.GetWork(r.Context(), workID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkResponse{Work: *work})
}

// GetChildren handles GET /works/{workID}/children.
func (h *Handler) GetChildren(w http.ResponseWriter, r *http.Request) {
	workID := chi.URLParam(r, "workID")
	children, err := h.registrar.GetChildren(r.Context(), workID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChildrenResponse{ParentWorkID: workID, Children: children})
}

// CreateDerivative handles POST /derivatives.
func (h *Handler) CreateDerivative(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateDerivativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Caller == "" || req.ParentWorkID == "" || req.ChildWorkID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("caller, parent_work_id and child_work_id are required"))
		return
	}

	work, edge, err := h.registrar.CreateDerivative(r.Context(), req.Caller, req.ParentWorkID, req.ChildWorkID, req.MetadataPointer, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DerivativeResponse{Work: *work, Edge: *edge})
}

// GetDerivative handles GET /derivatives/{childWorkID}.
func (h *Handler) GetDerivative(w http.ResponseWriter, r *http.Request) {
	childWorkID := chi.URLParam(r, "childWorkID")
	edge, err := h.registrar.GetDerivativeEdge(r.Context(), childWorkID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

// DistributeBatch handles POST /rewards/distributions.
func (h *Handler) DistributeBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DistributeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Caller == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("caller is required"))
		return
	}

	if err := h.rewards.DistributeBatch(r.Context(), req.Caller, req.Recipients, req.Amounts, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deposit handles POST /rewards/deposits.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Caller == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("caller is required"))
		return
	}

	if err := h.rewards.Deposit(r.Context(), req.Caller, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles GET /rewards/balances/{holder}.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	holder := chi.URLParam(r, "holder")
	balance, err := h.rewards.BalanceOf(r.Context(), holder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Holder: holder, Balance: balance})
}

// SetReward handles PUT /config/reward.
func (h *Handler) SetReward(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SetRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Caller == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("caller is required"))
		return
	}

	if err := h.rewards.SetPerEventReward(req.Caller, req.PerEventReward); err != nil {
		writeError(w, err)
		return
	}
	h.writeRewardConfig(w)
}

// GetRewardConfig handles GET /config/reward.
func (h *Handler) GetRewardConfig(w http.ResponseWriter, _ *http.Request) {
	h.writeRewardConfig(w)
}

func (h *Handler) writeRewardConfig(w http.ResponseWriter) {
	policy := h.rewards.Policy()
	min, max := policy.Bounds()
	writeJSON(w, http.StatusOK, RewardConfigResponse{
		PerEventReward: policy.PerEventReward(),
		MinReward:      min,
		MaxReward:      max,
	})
}
