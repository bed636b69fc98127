package interfaces

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"govres/domain"
)

const (
	loggerKey = "logger"
	userKey   = "user"
)

// requestLogger tags every request with a txid and logs its outcome.
func (h *HTTPHandler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := h.log.With("txid", uuid.New().String())
		c.Set(loggerKey, log)
		log.Info("Incoming request", "method", c.Request.Method, "path", c.Request.URL.Path)

		c.Next()

		log.Info("Finished request", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func requestLog(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if log, ok := v.(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}

// identity trusts the user id set by the fronting auth proxy.
func (h *HTTPHandler) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(h.cfg.IdentityHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + h.cfg.IdentityHeader + " header"})
			return
		}
		user, err := h.Identity.Touch(c.Request.Context(), userID, strings.TrimSpace(c.GetHeader(h.cfg.EmailHeader)))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(loggerKey, requestLog(c).With("user_id", user.ID))
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin {
			respondError(c, fmt.Errorf("%w: admin only", domain.ErrForbidden))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(userKey).(*domain.User)
}

func userID(c *gin.Context) string {
	return currentUser(c).ID
}
