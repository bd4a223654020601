package exporter

import (
	"context"
	"wisecal/internal/render"

	"github.com/pkg/errors"
)

// ErrNotFound is reported when the remote object or container is absent.
var ErrNotFound = errors.New("not found")

type ItemStatus int

const (
	StatusOK ItemStatus = iota
	StatusNotFound
	StatusFailed
)

func (s ItemStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "notfound"
	default:
		return "failed"
	}
}

// ItemResult is the outcome of one item of a batch, correlated by event id.
type ItemResult struct {
	ID     string
	Status ItemStatus
	Err    error
}

func OK(id string) ItemResult {
	return ItemResult{ID: id, Status: StatusOK}
}

// Failed classifies err: errors wrapping ErrNotFound become StatusNotFound.
func Failed(id string, err error) ItemResult {
	if errors.Is(err, ErrNotFound) {
		return ItemResult{ID: id, Status: StatusNotFound, Err: err}
	}
	return ItemResult{ID: id, Status: StatusFailed, Err: err}
}

// Calendar is the destination calendar provider. Batch calls return exactly
// one result per requested item.
type Calendar interface {
	CreateContainer(ctx context.Context, owner, title string) (string, error)
	UpsertEvents(ctx context.Context, container string, events []render.Event) []ItemResult
	DeleteEvents(ctx context.Context, container string, ids []string) []ItemResult
	ContainerExists(ctx context.Context, container string) (bool, error)
}
