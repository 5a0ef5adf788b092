package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/events"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/logging"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/syncx"
)

// Pool fans an operation out over a configured relay list. Event ids are
// content-derived, so the same event carries the same id on every relay.
//
// There is no consistency guarantee across relays: a send succeeds when at
// least one relay accepts, and the others are best-effort.
type Pool struct {
	clients []*Client
	log     logging.Logger
}

func NewPool(urls []string, log logging.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, errors.New("relay pool needs at least one relay url")
	}
	clients := make([]*Client, len(urls))
	for i, u := range urls {
		clients[i] = NewClient(u, log)
	}
	return &Pool{clients: clients, log: log}, nil
}

// Send publishes to every relay. It succeeds if any relay accepted the
// event, returning the shared event id; failures on individual relays are
// logged and folded into the error only when all of them fail.
func (p *Pool) Send(ctx context.Context, ev events.Event) (string, error) {
	var errs []error
	id := ""
	for _, c := range p.clients {
		got, err := c.Send(ctx, ev)
		if err != nil {
			p.log.Warn(ctx, "relay rejected event", "relay", c.url, "error", err)
			errs = append(errs, err)
			continue
		}
		id = got
	}
	if id == "" {
		return "", fmt.Errorf("%w: all relays failed: %w", common.ErrTransport, errors.Join(errs...))
	}
	return id, nil
}

// Query asks relays in order and returns the first successful answer.
func (p *Pool) Query(ctx context.Context, f syncx.Filter) ([]events.Event, error) {
	var errs []error
	for _, c := range p.clients {
		evs, err := c.Query(ctx, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return evs, nil
	}
	return nil, fmt.Errorf("%w: all relays failed: %w", common.ErrTransport, errors.Join(errs...))
}
