package domain

import "errors"

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate дубликат записи
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSubscriptionActive у организации уже есть активная подписка
	ErrSubscriptionActive = errors.New("organization already has an active subscription")

	// ErrNoBillingAccount у организации нет клиента в платежной системе
	ErrNoBillingAccount = errors.New("no billing account found")

	// ErrWebhookValidationFailed не удалось проверить подпись вебхука
	ErrWebhookValidationFailed = errors.New("webhook validation failed")

	// ErrExternalServiceUnavailable внешний сервис недоступен
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")
)
