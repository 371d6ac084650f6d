package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated caller as seen by every internal module.
// Handlers resolve it once from claims and thread it through request context.
type Identity struct {
	UserID    int64
	ClientID  int64
	Role      string
	Superuser bool
}

type ctxKey int

const ctxIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.UserID != 0 {
		return id, nil
	}
	return Identity{}, errors.New("identity not in context")
}
