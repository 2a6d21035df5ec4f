package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

const (
	// ContextUserIDKey stores the authenticated user id in the gin context.
	ContextUserIDKey = "user_id"
	// ContextPermissionKey stores the caller's permission tier.
	ContextPermissionKey = "permission"
)

// AuthRequired authenticates the request via the bearer access token and,
// when a permission set is given, authorizes against it. An empty set means
// any authenticated caller. The manager tier always passes. The token's
// embedded permission is trusted as-is; the gate never re-queries the user
// store.
func AuthRequired(perms ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, "empty bearer token")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				utils.Error(ctx, http.StatusUnauthorized, "token expired")
			} else {
				utils.Error(ctx, http.StatusUnauthorized, "invalid token")
			}
			ctx.Abort()
			return
		}

		if len(perms) > 0 && claims.Permission != models.PermissionManager {
			allowed := false
			for _, p := range perms {
				if claims.Permission == p {
					allowed = true
					break
				}
			}
			if !allowed {
				utils.Error(ctx, http.StatusForbidden, "insufficient permission")
				ctx.Abort()
				return
			}
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextPermissionKey, claims.Permission)
		ctx.Next()
	}
}

// CallerIdentity extracts the identity the gate attached to the context.
func CallerIdentity(ctx *gin.Context) (userID uint, permission string, ok bool) {
	idVal, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, "", false
	}
	id, ok := idVal.(uint)
	if !ok {
		return 0, "", false
	}
	permVal, exists := ctx.Get(ContextPermissionKey)
	if !exists {
		return 0, "", false
	}
	perm, _ := permVal.(string)
	return id, perm, true
}
