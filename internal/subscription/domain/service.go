package domain

import (
	"context"
	"errors"
)

// ErrNoPlan indicates the user has no recognizable active plan.
var ErrNoPlan = errors.New("no_active_plan")

type Service interface {
	// ResolvePlanID returns the user's effective plan id, trying each
	// resolution source in precedence order. Returns ErrNoPlan when no
	// source yields a plan.
	ResolvePlanID(ctx context.Context, userID string) (string, error)
}
