// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимается ошибка сервиса, на выход даётся:
//   - HTTP-статус;
//   - стабильный машиночитаемый код;
//   - локализованное сообщение без утечки внутренних деталей.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/text/language"

	"github.com/pribylovaa/go-tenant-auth/internal/http/i18n"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrBadRequest — тело запроса не разобрано.
var ErrBadRequest = errors.New("bad request")

// APIError — единый формат для фронта.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target error
	status int
	code   string
}

// table — порядок важен только для ошибок контекста, остальные сентинелы различны.
var table = []mapping{
	{ErrBadRequest, http.StatusBadRequest, "invalid_argument"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_argument"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{service.ErrEmailRestricted, http.StatusBadRequest, "email_restricted"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "empty_password"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{service.ErrPasswordMismatch, http.StatusBadRequest, "password_mismatch"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrMissingToken, http.StatusUnauthorized, "missing_token"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{service.ErrTokenBlacklisted, http.StatusUnauthorized, "token_revoked"},
	{service.ErrNotVerified, http.StatusForbidden, "not_verified"},
	{service.ErrOwnerNotFound, http.StatusNotFound, "not_found"},
	{service.ErrAlreadyVerified, http.StatusConflict, "already_verified"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{service.ErrDispatchFailed, http.StatusBadGateway, "dispatch_failed"},
	{context.Canceled, StatusClientClosedRequest, "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
}

// Classify возвращает HTTP-статус и код ошибки.
// nil и неизвестные ошибки — 500/internal.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal"
	}

	for _, m := range table {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}

	return http.StatusInternalServerError, "internal"
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа на языке tag.
func ToHTTP(err error, tag language.Tag) (int, ErrorResponse) {
	status, code := Classify(err)

	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: i18n.Message(tag, code),
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Язык берётся из Accept-Language, request_id — из X-Request-Id.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorDetails(w, r, err, nil)
}

// WriteErrorDetails — WriteError с дополнительными безопасными полями.
func WriteErrorDetails(w http.ResponseWriter, r *http.Request, err error, details map[string]string) {
	status, resp := ToHTTP(err, i18n.FromRequest(r))

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}
	if len(details) > 0 {
		resp.Error.Details = details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
