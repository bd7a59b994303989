package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintcrm/billing-service/pkg/logger"
	"github.com/tintcrm/billing-service/pkg/res"
)

// Двойная отправка CSRF-токена: httpOnly кука хранит эталон,
// читаемая кука позволяет клиенту положить токен в заголовок.
const (
	csrfSecretCookie   = "__Host-csrf"
	csrfReadableCookie = "csrf-token"
	csrfHeader         = "X-Csrf-Token"
	csrfTokenBytes     = 32
	csrfCookieMaxAge   = 12 * 60 * 60
)

// Пути, освобожденные от CSRF-проверки: вебхуки аутентифицируются
// подписью провайдера, а не сессией.
var csrfExemptPaths = []string{"/webhooks/stripe"}

func isCSRFExempt(path string) bool {
	for _, exempt := range csrfExemptPaths {
		if path == exempt {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func generateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CSRF миддлварь защиты от межсайтовой подделки запросов.
// На безопасных методах выдает пару кук, на мутирующих сверяет
// заголовок с httpOnly-кукой.
func CSRF(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if isSafeMethod(c.Request.Method) {
			if _, err := c.Cookie(csrfSecretCookie); err != nil {
				token, genErr := generateCSRFToken()
				if genErr != nil {
					log.Errorw("Failed to generate CSRF token", "error", genErr)
					c.Next()
					return
				}
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(csrfSecretCookie, token, csrfCookieMaxAge, "/", "", true, true)
				c.SetCookie(csrfReadableCookie, token, csrfCookieMaxAge, "/", "", true, false)
			}
			c.Next()
			return
		}

		if isCSRFExempt(path) {
			c.Next()
			return
		}

		secret, err := c.Cookie(csrfSecretCookie)
		header := c.GetHeader(csrfHeader)
		if err != nil || header == "" || !hmac.Equal([]byte(secret), []byte(header)) {
			log.Warnw("CSRF validation failed", "path", path, "method", c.Request.Method)
			res.JsonErrorResponse(c.Writer, res.ErrorResponse{
				Error:     "csrf validation failed",
				ErrorCode: http.StatusForbidden,
			}, http.StatusForbidden, log)
			c.Abort()
			return
		}

		c.Next()
	}
}
