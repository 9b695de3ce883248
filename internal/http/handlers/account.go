package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-tenant-auth/internal/http/apierrors"
)

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), accessToken(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileFromModel(profile))
}

func (h *Handlers) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var in changeEmailRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	access, err := h.svc.ChangeEmail(r.Context(), accessToken(r), in.CurrentPassword, in.NewEmail)
	if access != nil {
		// Прежний токен уже отозван: новый отдаём и при сбое отправки письма.
		h.setTokenCookie(w, CookieAccess, access)
	}
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"access_expires_at": access.ExpiresAt})
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	err := h.svc.ChangePassword(r.Context(), accessToken(r), in.CurrentPassword, in.Password, in.ConfirmPassword)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var in deleteAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), accessToken(r), in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearCookie(w, CookieAccess)
	h.clearCookie(w, CookieSession)
	w.WriteHeader(http.StatusNoContent)
}
