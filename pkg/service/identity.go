// Package service holds the contracts modules use to call each other without
// importing one another.
package service

import (
	"context"
	"time"
)

// TokenValidator resolves a bearer token to the player behind it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (playerID int64, username string, expiresAt time.Time, err error)
}
