package state

import (
	"context"
	"wisecal/internal/reconcile"
)

// Store keeps, per owner, the ids believed present on the remote calendar.
// Save replaces the whole set.
type Store interface {
	Load(ctx context.Context, owner string) (reconcile.IDSet, error)
	Save(ctx context.Context, owner string, ids reconcile.IDSet) error
}

// Calendars maps owners to their remote calendar container.
type Calendars interface {
	Get(ctx context.Context, owner string) (string, bool, error)
	Set(ctx context.Context, owner, calendarID string) error
	Clear(ctx context.Context, owner string) error
}
