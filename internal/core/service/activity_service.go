package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/loginbox/user-portal/internal/core/ports"
)

type activityService struct {
	repo ports.AccountRepository
	log  zerolog.Logger
}

// NewActivityService returns the ActivityRecorder that applies login/logout
// activity updates to the account store.
func NewActivityService(repo ports.AccountRepository, log zerolog.Logger) ports.ActivityRecorder {
	return &activityService{repo: repo, log: log}
}

// Record applies a single activity update. Login sets login_time and bumps
// login_count in one atomic store operation; logout sets logout_time.
func (s *activityService) Record(ctx context.Context, update ports.ActivityUpdate) error {
	var err error
	switch update.Kind {
	case ports.ActivityLogin:
		err = s.repo.RecordLogin(ctx, update.Username, update.At)
	case ports.ActivityLogout:
		err = s.repo.RecordLogout(ctx, update.Username, update.At)
	default:
		return fmt.Errorf("record activity: unknown kind %q", update.Kind)
	}

	if err != nil {
		return fmt.Errorf("record %s activity: %w", update.Kind, err)
	}

	s.log.Debug().
		Str("username", update.Username).
		Str("kind", string(update.Kind)).
		Time("at", update.At).
		Msg("activity recorded")

	return nil
}
