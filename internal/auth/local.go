package auth

import (
	"context"

	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/storage"
)

// LocalProvider validates bearer tokens against the user repository.
// Used in development and single-node deployments.
type LocalProvider struct {
	users  storage.UserRepository
	logger internal.Logger
}

func NewLocalProvider(users storage.UserRepository, logger internal.Logger) *LocalProvider {
	return &LocalProvider{users: users, logger: logger}
}

func (a *LocalProvider) ValidateToken(ctx context.Context, token string) (*internal.User, error) {
	user, err := a.users.GetUserByToken(ctx, token)
	if err != nil {
		a.logger.Warnf("token validation failed: %v", err)
		return nil, err
	}
	return user, nil
}

var _ Provider = (*LocalProvider)(nil)
