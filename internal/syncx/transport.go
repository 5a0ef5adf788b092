// Package syncx orchestrates publish, update and retract operations against
// a pub/sub transport, tracking which network identifier currently
// represents each record.
package syncx

import (
	"context"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/events"
)

// Filter selects events on a query. Authors, when set, restricts results to
// events carrying one of the given author tags.
type Filter struct {
	Kinds   []int
	Authors []string
	Limit   int
}

// Transport is the injected pub/sub collaborator. Send returns the
// transport-assigned identifier of the accepted event synchronously with
// success. A cancelled or timed-out call is an ordinary transport failure.
type Transport interface {
	Send(ctx context.Context, ev events.Event) (string, error)
	Query(ctx context.Context, f Filter) ([]events.Event, error)
}
