package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/portal-auth/internal/config"
)

// Middleware applies the per-project CORS policy. Requests without an Origin
// header are not browser requests and pass through untouched. A configured
// allowlist admits exactly the matching origin; anything else is rejected
// with 403 and no Access-Control-Allow-Origin header.
func Middleware(resolver *Resolver, cfg config.Config) gin.HandlerFunc {
	joinedMethods := strings.Join(cfg.CORSAllowedMethods, ", ")
	joinedHeaders := strings.Join(cfg.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowed := resolver.AllowedOrigins(c.Request.Context(), tenantKey(c))
		if len(allowed) > 0 && !originAllowed(origin, allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "access_denied",
				"error_description": "Origin is not allowed for this project.",
			})
			return
		}

		header := c.Writer.Header()
		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Methods", joinedMethods)
		header.Set("Access-Control-Allow-Headers", joinedHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// tenantKey pulls the project public key from wherever a client may carry
// it: query string for redirects, header for XHR calls.
func tenantKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.Query("public_key")); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.Query("client_id")); key != "" {
		return key
	}
	return strings.TrimSpace(c.GetHeader("X-Public-Key"))
}
