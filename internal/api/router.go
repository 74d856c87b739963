package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/registrar"
	"github.com/starford/othala/internal/reward"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(reg *registrar.Service, rwd *reward.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(reg, rwd)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Work registration.
	r.Post("/works", h.RegisterWork)
	r.Get("/works/{workID}", h.GetWork)
	r.Get("/works/{workID}/children", h.GetChildren)

	// Derivatives.
	r.Post("/derivatives", h.CreateDerivative)
	r.Get("/derivatives/{childWorkID}", h.GetDerivative)

	// Reward ledger.
	r.Post("/rewards/distributions", h.DistributeBatch)
	r.Post("/rewards/deposits", h.Deposit)
	r.Get("/rewards/balances/{holder}", h.GetBalance)

	// Runtime configuration.
	r.Put("/config/reward", h.SetReward)
	r.Get("/config/reward", h.GetRewardConfig)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
