// Package i18n локализует сообщения об ошибках HTTP-слоя (en, ru).
// Язык выбирается по заголовку Accept-Language, по умолчанию английский.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{
	language.English,
	language.Russian,
}

var matcher = language.NewMatcher(supported)

// Сообщения по стабильным кодам ошибок API.
var messages = map[language.Tag]map[string]string{
	language.English: {
		"invalid_argument":    "Invalid request.",
		"invalid_email":       "Email address is invalid.",
		"email_restricted":    "This email address cannot be used.",
		"email_taken":         "Email address is already in use.",
		"empty_password":      "Password must not be empty.",
		"weak_password":       "Password must be at least 8 characters long and contain a lowercase letter, an uppercase letter, a digit and a special character.",
		"password_mismatch":   "Passwords do not match.",
		"invalid_credentials": "Invalid email or password.",
		"missing_token":       "Authentication token is missing.",
		"invalid_token":       "Token is invalid or has already been used.",
		"token_expired":       "Token has expired.",
		"token_revoked":       "Token has been revoked.",
		"not_verified":        "Email address is not verified.",
		"not_found":           "Account not found.",
		"already_verified":    "Account is already verified.",
		"dispatch_failed":     "Email could not be sent, please try again later.",
		"canceled":            "Request canceled.",
		"deadline_exceeded":   "Request timed out.",
		"internal":            "Internal error.",
		"reset_requested":     "If the address is registered, a password reset email has been sent.",
	},
	language.Russian: {
		"invalid_argument":    "Некорректный запрос.",
		"invalid_email":       "Некорректный адрес электронной почты.",
		"email_restricted":    "Этот адрес электронной почты использовать нельзя.",
		"email_taken":         "Адрес электронной почты уже используется.",
		"empty_password":      "Пароль не должен быть пустым.",
		"weak_password":       "Пароль должен быть не короче 8 символов и содержать строчную и заглавную буквы, цифру и спецсимвол.",
		"password_mismatch":   "Пароли не совпадают.",
		"invalid_credentials": "Неверный адрес электронной почты или пароль.",
		"missing_token":       "Токен авторизации не передан.",
		"invalid_token":       "Токен недействителен или уже использован.",
		"token_expired":       "Срок действия токена истёк.",
		"token_revoked":       "Токен отозван.",
		"not_verified":        "Адрес электронной почты не подтверждён.",
		"not_found":           "Учётная запись не найдена.",
		"already_verified":    "Учётная запись уже подтверждена.",
		"dispatch_failed":     "Не удалось отправить письмо, попробуйте позже.",
		"canceled":            "Запрос отменён.",
		"deadline_exceeded":   "Превышено время ожидания запроса.",
		"internal":            "Внутренняя ошибка.",
		"reset_requested":     "Если адрес зарегистрирован, письмо для сброса пароля отправлено.",
	},
}

var builder = mustBuild()

func mustBuild() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, text := range msgs {
			if err := b.SetString(tag, key, text); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}

	return b
}

// Match выбирает поддерживаемый язык по значению Accept-Language.
func Match(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return language.English
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}

	return supported[idx]
}

// FromRequest выбирает язык ответа для запроса.
func FromRequest(r *http.Request) language.Tag {
	if r == nil {
		return language.English
	}

	return Match(r.Header.Get("Accept-Language"))
}

// Message возвращает текст для кода key на языке tag.
// Неизвестный код возвращается как есть.
func Message(tag language.Tag, key string) string {
	return message.NewPrinter(tag, message.Catalog(builder)).Sprintf(key)
}
