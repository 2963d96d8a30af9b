package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/middleware"
	"github.com/MrEthical07/gatekeeper/store"
)

type accountView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Suspended     bool      `json:"suspended"`
	EmailVerified bool      `json:"email_verified"`
	HasPassword   bool      `json:"has_password"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountView(a *store.Account) accountView {
	return accountView{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		Suspended:     a.Suspended,
		EmailVerified: a.EmailVerified,
		HasPassword:   a.HasPassword(),
		CreatedAt:     a.CreatedAt,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type externalLoginRequest struct {
	IDToken string `json:"id_token"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type confirmEmailRequest struct {
	Code string `json:"code"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req gatekeeper.RegisterInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	account, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toAccountView(account))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	pair, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, pair)
}

func (h *Handler) externalLogin(w http.ResponseWriter, r *http.Request) {
	var req externalLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, err := h.engine.LoginWithExternalIdentity(r.Context(), req.IDToken)
	if err != nil {
		h.writeMappedError(r.Context(), w, "external_login", err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeSuccess(w, status, res)
}

const resetAccepted = "if the email is registered, a reset link has been sent"

func (h *Handler) passwordForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.engine.CheckRateLimit(r.Context(), "email:"+email, gatekeeper.RoutePasswordForgot); err != nil {
		h.writeMappedError(r.Context(), w, "password_forgot", err)
		return
	}
	if err := h.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeMappedError(r.Context(), w, "password_forgot", err)
		return
	}
	writeMessage(w, http.StatusAccepted, resetAccepted)
}

func (h *Handler) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.engine.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		h.writeMappedError(r.Context(), w, "password_reset", err)
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	token, _ := middleware.AccessTokenFromContext(r.Context())
	if err := h.engine.Logout(r.Context(), token, req.RefreshToken); err != nil {
		h.writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	token, _ := middleware.AccessTokenFromContext(r.Context())

	if err := h.engine.LogoutAll(r.Context(), res.AccountID); err != nil {
		h.writeMappedError(r.Context(), w, "logout_all", err)
		return
	}
	// LogoutAll leaves unexpired access tokens valid; retire the caller's own.
	if err := h.engine.Logout(r.Context(), token, ""); err != nil {
		h.writeMappedError(r.Context(), w, "logout_all", err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out of all sessions")
}

func (h *Handler) passwordChange(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, _ := middleware.AuthResultFromContext(r.Context())
	pair, err := h.engine.ChangePassword(r.Context(), res.AccountID, res.SessionID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeMappedError(r.Context(), w, "password_change", err)
		return
	}
	writeSuccess(w, http.StatusOK, pair)
}

func (h *Handler) emailVerificationSend(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := h.engine.SendEmailVerification(r.Context(), res.AccountID); err != nil {
		h.writeMappedError(r.Context(), w, "email_verification_send", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "verification code sent")
}

func (h *Handler) emailVerificationConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmEmailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := h.engine.ConfirmEmailVerification(r.Context(), res.AccountID, req.Code); err != nil {
		h.writeMappedError(r.Context(), w, "email_verification_confirm", err)
		return
	}
	writeMessage(w, http.StatusOK, "email verified")
}
