package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "userId"
	bearerScheme = "bearer"

	errMissingAuth  = "missing Authorization header"
	errAuthFormat   = "invalid Authorization header format"
	errInvalidToken = "invalid or expired token"
)

// userIdMiddleware admits requests carrying a valid bearer token and stores
// the operator id in the gin context.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		h.unauthorized(c, errMissingAuth)
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		h.unauthorized(c, errAuthFormat)
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Infow("auth_token_rejected", "ip", c.ClientIP(), "err", err)
		h.unauthorized(c, errInvalidToken)
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}

func (h *Handler) unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="zone-controller"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// currentUserID returns the id stored by userIdMiddleware.
func currentUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

// requestLogger logs one line per request. Probe and metrics scrapes are
// logged at debug so they do not drown the operator traffic.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()

	kv := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start),
		"ip", c.ClientIP(),
	}
	if id, ok := currentUserID(c); ok {
		kv = append(kv, "user_id", id)
	}
	switch path := c.Request.URL.Path; {
	case path == "/health" || path == "/healthz" || path == "/metrics":
		h.log.Debugw("http_request", kv...)
	case c.Writer.Status() >= http.StatusInternalServerError:
		h.log.Warnw("http_request", kv...)
	default:
		h.log.Infow("http_request", kv...)
	}
}
