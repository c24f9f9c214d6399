package auth

import (
	"context"

	"github.com/yourname/timetracker/internal"
)

type Provider interface {
	ValidateToken(ctx context.Context, token string) (*internal.User, error)
}
