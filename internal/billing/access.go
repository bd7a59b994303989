package billing

import (
	"net/url"
	"strings"

	"github.com/tintcrm/billing-service/internal/domain"
)

// Страницы, доступные без аутентификации
var publicPaths = []string{
	"/",
	"/auth/login",
	"/auth/signup",
	"/auth/confirm",
	"/auth/callback",
	"/webhooks/stripe",
	"/health",
	"/metrics",
	"/api/v1/products",
}

// Страницы, требующие аутентификации, но не организации.
// API-маршруты биллинга сюда же: их предусловия (наличие организации,
// статус подписки) проверяются в обработчиках со своими кодами ответов.
var authOnlyPaths = []string{
	"/onboarding",
	"/subscription-setup",
	"/api/v1/organizations",
	"/api/v1/organization",
	"/api/v1/billing",
	"/api/v1/webhook-events",
}

// Страницы, требующие активного биллинга
var billingGatedPaths = []string{
	"/dashboard",
	"/billing",
}

// Целевые адреса редиректов
const (
	LoginPath             = "/auth/login"
	DashboardPath         = "/dashboard"
	OnboardingPath        = "/onboarding"
	SubscriptionSetupPath = "/subscription-setup"
)

// HasAccess единственное правило доступа: читается ровно одно поле снимка.
// Вся политика (грейс-период, условия триала) находится в реконсилере.
func HasAccess(org *domain.Organization) bool {
	return org != nil && org.IsActive
}

func matchesAny(path string, routes []string) bool {
	for _, route := range routes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// IsPublicPath сообщает, доступен ли путь без аутентификации
func IsPublicPath(path string) bool {
	return matchesAny(path, publicPaths)
}

// IsAuthOnlyPath сообщает, достаточно ли для пути одной аутентификации
func IsAuthOnlyPath(path string) bool {
	return matchesAny(path, authOnlyPaths)
}

// RequiresBilling сообщает, требует ли путь активной подписки
func RequiresBilling(path string) bool {
	return matchesAny(path, billingGatedPaths)
}

// IsAuthPage сообщает, является ли путь страницей входа/регистрации
func IsAuthPage(path string) bool {
	return path == LoginPath || path == "/auth/signup" ||
		strings.HasPrefix(path, LoginPath+"/") || strings.HasPrefix(path, "/auth/signup/")
}

// ResolveRedirect тотальная функция выбора редиректа по состоянию запроса.
// Возвращает целевой адрес и true, если редирект нужен.
func ResolveRedirect(authenticated, hasOrganization, hasAccess bool, path string) (string, bool) {
	if !authenticated {
		if IsPublicPath(path) {
			return "", false
		}
		// Исходный путь сохраняется, чтобы вернуть пользователя после входа
		return LoginPath + "?redirect=" + url.QueryEscape(path), true
	}

	// Аутентифицированных уводим со страниц входа/регистрации
	if IsAuthPage(path) {
		return DashboardPath, true
	}

	if IsPublicPath(path) || IsAuthOnlyPath(path) {
		return "", false
	}

	if !hasOrganization {
		return OnboardingPath, true
	}

	if !hasAccess && RequiresBilling(path) {
		return SubscriptionSetupPath, true
	}

	return "", false
}
