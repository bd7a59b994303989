package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tintcrm/billing-service/pkg/logger"
	"github.com/tintcrm/billing-service/pkg/res"
)

// Ключи контекста запроса
const (
	ContextClaimsKey         = "claims"
	ContextOrganizationIDKey = "organizationID"
	ContextEmailKey          = "email"
)

// Имя сессионной куки (используется браузерными клиентами вместо заголовка)
const sessionCookieName = "session_token"

// TokenClaims клеймы сессионного токена
type TokenClaims struct {
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator проверяет сессионный токен и возвращает клеймы
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// DefaultTokenValidator проверка HMAC-подписанных JWT
type DefaultTokenValidator struct {
	secret []byte
}

// NewTokenValidator создает валидатор с симметричным секретом
func NewTokenValidator(secret string) *DefaultTokenValidator {
	return &DefaultTokenValidator{secret: []byte(secret)}
}

// ValidateToken разбирает и проверяет токен
func (v *DefaultTokenValidator) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// extractToken достает токен из заголовка Authorization или сессионной куки
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		return cookie
	}

	return ""
}

// ResolveSession кладет клеймы в контекст, если токен валиден.
// Запрос не прерывается: решение о доступе принимает следующая миддлварь.
func ResolveSession(validator TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			// Невалидный токен равносилен его отсутствию
			log.Debugw("Session token rejected", "path", c.Request.URL.Path, "error", err)
			c.Next()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextOrganizationIDKey, claims.OrganizationID)
		c.Set(ContextEmailKey, claims.Email)
		c.Next()
	}
}

// RequireAuth прерывает запрос без валидной сессии
func RequireAuth(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ClaimsFromContext(c); !ok {
			res.JsonErrorResponse(c.Writer, res.ErrorResponse{
				Error:     "authentication required",
				ErrorCode: http.StatusUnauthorized,
			}, http.StatusUnauthorized, log)
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClaimsFromContext возвращает клеймы текущей сессии
func ClaimsFromContext(c *gin.Context) (*TokenClaims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*TokenClaims)
	return claims, ok
}
