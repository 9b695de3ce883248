package handlers

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/go-tenant-auth/internal/http/apierrors"
	"github.com/pribylovaa/go-tenant-auth/internal/http/i18n"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	owner, err := h.svc.Register(r.Context(), in.toInput())
	if err != nil {
		// Владелец создан, но письмо не ушло: id нужен для повторной отправки.
		if owner != nil && errors.Is(err, service.ErrDispatchFailed) {
			apierrors.WriteErrorDetails(w, r, err, map[string]string{"owner_id": owner.ID.String()})
			return
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ownerFromModel(owner))
}

func (h *Handlers) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.ResendVerification(r.Context(), in.Email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	owner, err := h.svc.VerifyEmail(r.Context(), in.Token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ownerFromModel(owner))
}

func (h *Handlers) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	owner, err := h.svc.VerifyAccount(r.Context(), in.Token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ownerFromModel(owner))
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	res, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setTokenCookie(w, CookieAccess, res.Access)
	h.setTokenCookie(w, CookieSession, res.Session)

	writeJSON(w, http.StatusOK, sessionResponse{
		Owner:           ownerFromModel(res.Owner),
		AccessExpiresAt: res.Access.ExpiresAt,
	})
}

// RefreshSession выпускает новый access-токен по cookie SessionToken.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var session string
	if c, err := r.Cookie(CookieSession); err == nil {
		session = c.Value
	}

	access, err := h.svc.ResumeSession(r.Context(), session)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setTokenCookie(w, CookieAccess, access)
	writeJSON(w, http.StatusOK, map[string]any{"access_expires_at": access.ExpiresAt})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), accessToken(r)); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearCookie(w, CookieAccess)
	h.clearCookie(w, CookieSession)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), in.Email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, messageResponse{
		Message: i18n.Message(i18n.FromRequest(r), "reset_requested"),
	})
}

func (h *Handlers) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetCompleteRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.CompletePasswordReset(r.Context(), in.Token, in.Password, in.ConfirmPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
