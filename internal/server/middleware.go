package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
)

const requestIDHeader = "X-Request-ID"

// requestID reuses the caller's request id or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"))
	}
}

// respondError renders err as {"error", "kind", "fields"}. Domain failures
// echo the submitted input back so the form can be kept.
func (s *Server) respondError(c *gin.Context, err error, input any) {
	ae := apperr.Wrap(err)
	status := apperr.HTTPStatus(ae)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
	} else if ae.Err != nil {
		s.logger.Warn("request failed", "path", c.FullPath(), "kind", ae.Kind, "error", ae.Err)
	}

	body := gin.H{
		"error": apperr.PublicMessage(ae),
		"kind":  ae.Kind,
	}
	if len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	if input != nil && ae.Kind == apperr.Domain {
		body["request"] = input
	}
	c.JSON(status, body)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.respondError(c, apperr.ValidationErr("The request body is invalid.", map[string]string{"body": err.Error()}), nil)
}
