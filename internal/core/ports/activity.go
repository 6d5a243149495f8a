package ports

import (
	"context"
	"time"
)

// ActivityKind enumerates the auth events that touch activity fields.
type ActivityKind string

const (
	ActivityLogin  ActivityKind = "login"
	ActivityLogout ActivityKind = "logout"
)

// ActivityUpdate is a single fire-and-forget activity mutation, queued by the
// login/logout handlers and applied off the request path.
type ActivityUpdate struct {
	Username string
	Kind     ActivityKind
	At       time.Time
}

// ActivityRecorder applies activity updates to the account store.
type ActivityRecorder interface {
	Record(ctx context.Context, update ActivityUpdate) error
}
