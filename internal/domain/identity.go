package domain

import "context"

type Identity struct {
	Username string
	UserID   string
}

// Name returns the best available label for the requester.
func (i Identity) Name() string {
	if i.Username != "" {
		return i.Username
	}
	if i.UserID != "" {
		return i.UserID
	}
	return UnknownUsername
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
