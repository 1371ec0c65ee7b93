package auth

import (
	"context"

	"github.com/addyspiller/prisere/internal/common"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Email  string
}

// Provider resolves the identity behind a request's Authorization header
// value. Implementations must return common.ErrUnauthorized for anything
// they cannot attribute to a user.
type Provider interface {
	Authenticate(ctx context.Context, authorization string) (Identity, error)
}

// StaticProvider attributes every request to one fixed user. It backs local
// development and tests, where a token infrastructure would be in the way.
type StaticProvider struct {
	UserID string
}

func NewStaticProvider(userID string) *StaticProvider {
	if userID == "" {
		userID = "dev_user"
	}
	return &StaticProvider{UserID: userID}
}

func (p *StaticProvider) Authenticate(context.Context, string) (Identity, error) {
	return Identity{UserID: p.UserID}, nil
}

var _ Provider = (*StaticProvider)(nil)

func unauthorized(msg string) error {
	return common.NewAppError("UNAUTHORIZED", msg, common.ErrUnauthorized)
}
