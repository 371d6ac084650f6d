package rbac

import (
	"net/http"

	"xdial-backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the caller has any of the provided roles.
// Superuser bypasses the check; a missing or unknown role is rejected.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if id.Superuser {
			c.Next()
			return
		}
		if _, ok := allowedSet[id.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireCapability gates a route on a derived capability rather than a role
// list. pick selects the flag under test from the caller's capability set.
func RequireCapability(pick func(Capabilities) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !pick(ForRole(id.Role, id.Superuser)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireClientProfile enforces that client-role callers carry a client id.
// Staff roles pass through; a client token without a profile is unusable.
func RequireClientProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}
		if IsClientRole(id.Role) && id.ClientID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "client profile required"})
			return
		}
		c.Next()
	}
}
