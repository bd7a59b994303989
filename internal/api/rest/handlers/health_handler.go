package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler проверка живости сервиса
type HealthHandler struct{}

// NewHealthHandler создает обработчик проверки живости
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check обрабатывает GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
