package api

import (
	"net/http"

	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/service/subscription"
)

type subscriptionHandlers struct {
	svc *subscription.Service
}

type statusResponse struct {
	Status string `json:"status"`
}

// Subscribe handles POST /subscriptions with form fields name and email.
func (h *subscriptionHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "invalid form body")
		return
	}
	if err := h.svc.Subscribe(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("name")); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, r, statusResponse{Status: "pending_confirmation"})
}

// Resend handles POST /subscriptions/resend with form field email.
func (h *subscriptionHandlers) Resend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "invalid form body")
		return
	}
	if err := h.svc.Resend(r.Context(), r.PostForm.Get("email")); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, r, statusResponse{Status: "pending_confirmation"})
}

// Confirm handles GET /subscriptions/confirm?subscription_token=...
func (h *subscriptionHandlers) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		httputil.BadRequest(w, r, "subscription_token is required")
		return
	}
	if err := h.svc.Confirm(r.Context(), token); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, r, statusResponse{Status: "confirmed"})
}
