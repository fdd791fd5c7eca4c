package http

import (
	"context"
	"net/http"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/service"
	"github.com/gin-gonic/gin"
)

type ctxKey struct{}

const ginPlayerKey = "player_id"

// WithPlayerID binds an authenticated player id to ctx.
func WithPlayerID(ctx context.Context, playerID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, playerID)
}

// PlayerIDFromContext returns the player bound by AuthMiddleware.
func PlayerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id > 0
}

// PlayerID returns the authenticated player of a gin request.
func PlayerID(c *gin.Context) int64 {
	return c.GetInt64(ginPlayerKey)
}

// AuthMiddleware rejects requests without a valid bearer token and binds the
// player id to the request context.
func AuthMiddleware(validator service.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "UNAUTHORIZED"})
			return
		}

		playerID, _, _, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Warn(c.Request.Context()).Err(err).Msg("auth: token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
			return
		}

		ctx := logger.WithFields(c.Request.Context(), map[string]interface{}{"player_id": playerID})
		c.Request = c.Request.WithContext(WithPlayerID(ctx, playerID))
		c.Set(ginPlayerKey, playerID)
		c.Next()
	}
}
