package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding the verified token claims.
const ClaimsKey = "claims"

// Token is a verified token that can decode its claims.
type Token interface {
	Claims(v interface{}) error
}

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware rejects requests without a valid Bearer token and stores
// the token claims under ClaimsKey for the handlers behind it.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err})
			return
		}

		tok, verr := ver.Verify(c.Request.Context(), raw)
		if verr != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": verr.Error()})
			return
		}
		var claims map[string]interface{}
		if cerr := tok.Claims(&claims); cerr != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing Authorization header"
	}
	scheme, tok, ok := strings.Cut(header, " ")
	tok = strings.TrimSpace(tok)
	if !ok || !strings.EqualFold(scheme, "Bearer") || tok == "" {
		return "", "invalid Authorization header"
	}
	return tok, ""
}

// Claims returns the verified claims of the request, or nil when the route
// is not behind AuthMiddleware.
func Claims(c *gin.Context) map[string]interface{} {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(map[string]interface{})
	return claims
}

// Subject is the "sub" claim of the request, if any.
func Subject(c *gin.Context) string {
	sub, _ := Claims(c)["sub"].(string)
	return sub
}
