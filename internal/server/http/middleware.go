package http

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/logging"
	"github.com/dmitrijs2005/drawkeeper/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// requireAuth accepts bearer tokens of the given kinds.
func requireAuth(secret []byte, kinds ...auth.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader(common.AuthorizationHeaderName)
		if len(h) <= len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
			respondError(c, fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized))
			return
		}

		p, err := auth.ParseToken(h[len(common.BearerPrefix):], secret)
		if err != nil {
			respondError(c, err)
			return
		}
		if !slices.Contains(kinds, p.Kind) {
			respondError(c, fmt.Errorf("%w: %s token not accepted here", common.ErrorUnauthorized, p.Kind))
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func principal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

func ownerID(c *gin.Context) string {
	if p := principal(c); p != nil && p.Kind == auth.KindOwner {
		return p.Subject
	}
	return ""
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if p := principal(c); p != nil {
			fields = append(fields, "subject", p.Subject)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.Error(ctx, "http request", fields...)
		case status >= 400:
			log.Warn(ctx, "http request", fields...)
		default:
			log.Info(ctx, "http request", fields...)
		}
	}
}
