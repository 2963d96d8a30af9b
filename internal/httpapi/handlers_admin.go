package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) adminAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.engine.Account(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		h.writeMappedError(r.Context(), w, "admin_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) adminSuspend(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SuspendAccount(r.Context(), chi.URLParam(r, "account_id")); err != nil {
		h.writeMappedError(r.Context(), w, "admin_suspend", err)
		return
	}
	writeMessage(w, http.StatusOK, "account suspended")
}

func (h *Handler) adminReinstate(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ReinstateAccount(r.Context(), chi.URLParam(r, "account_id")); err != nil {
		h.writeMappedError(r.Context(), w, "admin_reinstate", err)
		return
	}
	writeMessage(w, http.StatusOK, "account reinstated")
}
