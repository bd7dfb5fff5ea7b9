package auth

import "context"

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

func WithIdentity(ctx context.Context, claims AccessClaims) context.Context {
	return context.WithValue(ctx, identityKey, claims)
}

func IdentityFromContext(ctx context.Context) (AccessClaims, bool) {
	claims, ok := ctx.Value(identityKey).(AccessClaims)
	return claims, ok
}
