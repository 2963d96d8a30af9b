package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/gatekeeper/middleware"
	"github.com/MrEthical07/gatekeeper/session"
)

type sessionView struct {
	session.Summary
	Current bool `json:"current"`
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	sessions, err := h.engine.ListSessions(r.Context(), res.AccountID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}

	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{Summary: s, Current: s.ID == res.SessionID})
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"sessions": out,
	})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := h.engine.RevokeSession(r.Context(), res.AccountID, chi.URLParam(r, "session_id")); err != nil {
		h.writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "session revoked")
}

func (h *Handler) revokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	n, err := h.engine.RevokeOtherSessions(r.Context(), res.AccountID, res.SessionID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "revoke_other_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"revoked": n,
	})
}
