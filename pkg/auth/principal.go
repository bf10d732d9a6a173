package auth

import (
	"context"

	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
)

type principalKey struct{}

// Principal is the authenticated caller, resolved once at the HTTP boundary.
type Principal struct {
	Kind model.PartyKind
	ID   string
}

func (p Principal) IsUser() bool   { return p.Kind == model.PartyUser }
func (p Principal) IsExpert() bool { return p.Kind == model.PartyExpert }

// Owns reports whether p is one of the two parties of a.
func (p Principal) Owns(a *model.Appointment) bool {
	switch p.Kind {
	case model.PartyUser:
		return a.UserID == p.ID
	case model.PartyExpert:
		return a.ExpertID == p.ID
	}
	return false
}

func NewContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Require returns the caller when it is one of kinds (any kind when none given).
func Require(ctx context.Context, kinds ...model.PartyKind) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok || p.ID == "" {
		return Principal{}, apperrors.Unauthorized("Authentication required")
	}
	if len(kinds) == 0 {
		return p, nil
	}
	for _, k := range kinds {
		if p.Kind == k {
			return p, nil
		}
	}
	return Principal{}, apperrors.Forbidden("This action is not available for " + string(p.Kind) + " accounts")
}
