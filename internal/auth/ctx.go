package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uint64
	Email  string
}

type ctxKey int

const identityCtxKey ctxKey = 1

func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityCtxKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityCtxKey).(Identity)
	return id, ok && id.UserID != 0
}

func IdentityFromGin(c *gin.Context) (Identity, bool) {
	if c == nil || c.Request == nil {
		return Identity{}, false
	}
	return IdentityFromContext(c.Request.Context())
}
