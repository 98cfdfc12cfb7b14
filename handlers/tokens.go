package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitecraft/siteadmin/internal/tokens"
	"github.com/sitecraft/siteadmin/pkg/logger"
	"github.com/sitecraft/siteadmin/pkg/middleware"
)

// RegisterTokenRoutes mounts POST /auth/revoke, which revokes the bearer
// token of the request itself. guard must include the auth middleware so the
// verified claims are on the context.
func RegisterTokenRoutes(r gin.IRouter, rev *tokens.Revocations, guard ...gin.HandlerFunc) {
	revoke := func(c *gin.Context) {
		claims := middleware.Claims(c)
		jti, _ := claims["jti"].(string)
		exp, _ := claims["exp"].(float64)
		if jti == "" || exp == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token has no id or expiry"})
			return
		}
		if err := rev.Revoke(c.Request.Context(), jti, time.Unix(int64(exp), 0)); err != nil {
			logger.Errorf("tokens: revoke %s: %v", jti, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		logger.Infof("tokens: revoked %s (sub %s)", jti, middleware.Subject(c))
		c.JSON(http.StatusOK, gin.H{"revoked": jti})
	}
	r.POST("/auth/revoke", append(append([]gin.HandlerFunc{}, guard...), revoke)...)
}
