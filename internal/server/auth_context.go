package server

import (
	"context"

	"exportal/internal/store"
)

type authContextKey struct{}

func contextWithAuthUser(ctx context.Context, user *store.AuthUser) context.Context {
	return context.WithValue(ctx, authContextKey{}, user)
}

func authUserFromContext(ctx context.Context) (*store.AuthUser, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(authContextKey{}).(*store.AuthUser)
	return user, ok && user != nil
}
