package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/pkg/auth"
	"github.com/trous-aml/trous_service/pkg/i18n"
	"github.com/trous-aml/trous_service/pkg/logger"
)

// TokenValidator verifies a bearer token.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Authentication verifies the bearer token and stores the request actor.
// Accept-Language wins over the locale claim.
func Authentication(tokens TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == header {
			common.RespondUnauthorized(c)
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			log.Warn("Rejected bearer token",
				"error", err,
				"path", c.FullPath(),
				"client_ip", c.ClientIP(),
				"request_id", common.GetRequestID(c),
			)
			common.RespondUnauthorized(c)
			return
		}

		role := entities.Role(claims.Role)
		if !role.Valid() {
			log.Warn("Token carries an unknown role", "role", claims.Role, "user_id", claims.UserID.String())
			common.RespondForbidden(c)
			return
		}

		locale := i18n.English
		switch {
		case c.GetHeader("Accept-Language") != "":
			locale = i18n.Match(c.GetHeader("Accept-Language"))
		case claims.Locale != "":
			locale = i18n.Match(claims.Locale)
		}

		common.SetActor(c, entities.Actor{
			UserID:    claims.UserID,
			OrgID:     claims.OrgID,
			Role:      role,
			Locale:    locale,
			IPAddress: c.ClientIP(),
		})
		c.Next()
	}
}

// RequireRole admits only the listed roles.
func RequireRole(roles ...entities.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := common.RequireActor(c)
		if !ok {
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		common.RespondForbidden(c)
	}
}

// RequireWrite admits officers and admins.
func RequireWrite() gin.HandlerFunc {
	return RequireRole(entities.RoleOfficer, entities.RoleAdmin)
}

// RequireAdmin admits admins.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(entities.RoleAdmin)
}
