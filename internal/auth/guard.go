// Package auth holds the capability gate that start, reconfigure and
// settings-apply operations must pass.
package auth

import (
	"context"

	"drowsyguard/internal/model"
)

// Guard authorizes a privileged operation for the caller carried in ctx.
type Guard interface {
	Authorize(ctx context.Context) error
}

// Open lets every caller through.
type Open struct{}

func (Open) Authorize(context.Context) error { return nil }

// RequireLogin admits only callers with an authenticated principal in ctx.
type RequireLogin struct{}

func (RequireLogin) Authorize(ctx context.Context) error {
	if _, ok := FromContext(ctx); !ok {
		return model.ErrUnauthorized
	}
	return nil
}

// New returns RequireLogin when login is required and Open otherwise.
func New(loginRequired bool) Guard {
	if loginRequired {
		return RequireLogin{}
	}
	return Open{}
}

// Principal identifies an authenticated caller.
type Principal struct {
	Name string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
