// Package relay implements the pub/sub transport collaborator over a
// websocket relay. Events are framed as JSON arrays: ["EVENT", {...}] is
// answered by ["OK", id, accepted, message]; ["REQ", sub, filter] streams
// ["EVENT", sub, {...}] frames terminated by ["EOSE", sub].
package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/events"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/logging"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/syncx"
)

// Client talks to a single relay. Each operation dials a fresh connection;
// relays in this dialect are cheap to connect to and the core issues at
// most a handful of frames per operation.
type Client struct {
	url string
	log logging.Logger
}

func NewClient(url string, log logging.Logger) *Client {
	return &Client{url: url, log: log.With("relay", url)}
}

// EventID computes the identifier a relay assigns to an event: the SHA-256
// hex digest of its canonical serialization.
func EventID(ev events.Event) string {
	canonical := []any{0, ev.CreatedAt, ev.Kind, ev.Tags, ev.Content}
	b, _ := json.Marshal(canonical)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

type wireEvent struct {
	ID        string     `json:"id"`
	Kind      int        `json:"kind"`
	Content   string     `json:"content"`
	Tags      [][]string `json:"tags"`
	CreatedAt int64      `json:"created_at"`
}

type wireFilter struct {
	Kinds   []int    `json:"kinds,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Send publishes an event and waits for the relay's acceptance. The
// relay-assigned identifier is returned synchronously with success.
func (c *Client) Send(ctx context.Context, ev events.Event) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	id := EventID(ev)
	we := wireEvent{
		ID:        id,
		Kind:      ev.Kind,
		Content:   ev.Content,
		Tags:      ev.Tags,
		CreatedAt: ev.CreatedAt,
	}
	if we.Tags == nil {
		we.Tags = [][]string{}
	}

	if err := writeFrame(ctx, conn, []any{"EVENT", we}); err != nil {
		return "", fmt.Errorf("%w: sending event: %v", common.ErrTransport, err)
	}

	for {
		var frame []json.RawMessage
		if err := readFrame(ctx, conn, &frame); err != nil {
			return "", fmt.Errorf("%w: awaiting OK: %v", common.ErrTransport, err)
		}
		if len(frame) < 3 || frameLabel(frame[0]) != "OK" {
			continue
		}

		var okID string
		var accepted bool
		if err := json.Unmarshal(frame[1], &okID); err != nil || okID != id {
			continue
		}
		if err := json.Unmarshal(frame[2], &accepted); err != nil {
			return "", fmt.Errorf("%w: malformed OK frame", common.ErrTransport)
		}
		if !accepted {
			msg := ""
			if len(frame) > 3 {
				_ = json.Unmarshal(frame[3], &msg)
			}
			return "", fmt.Errorf("%w: event rejected: %s", common.ErrTransport, msg)
		}
		return id, nil
	}
}

// Query opens a subscription, collects matching events until the relay
// signals end-of-stored-events or the limit is reached, then closes it.
func (c *Client) Query(ctx context.Context, f syncx.Filter) ([]events.Event, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sub := uuid.NewString()
	wf := wireFilter{Kinds: f.Kinds, Authors: f.Authors, Limit: f.Limit}
	if err := writeFrame(ctx, conn, []any{"REQ", sub, wf}); err != nil {
		return nil, fmt.Errorf("%w: opening subscription: %v", common.ErrTransport, err)
	}

	var result []events.Event
	for {
		var frame []json.RawMessage
		if err := readFrame(ctx, conn, &frame); err != nil {
			return nil, fmt.Errorf("%w: reading subscription: %v", common.ErrTransport, err)
		}
		if len(frame) < 2 {
			continue
		}

		switch frameLabel(frame[0]) {
		case "EOSE":
			_ = writeFrame(ctx, conn, []any{"CLOSE", sub})
			return result, nil
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var we wireEvent
			if err := json.Unmarshal(frame[2], &we); err != nil {
				c.log.Warn(ctx, "skipping malformed event frame", "error", err)
				continue
			}
			result = append(result, events.Event{
				ID:        we.ID,
				Kind:      we.Kind,
				Content:   we.Content,
				Tags:      we.Tags,
				CreatedAt: we.CreatedAt,
			})
			if f.Limit > 0 && len(result) >= f.Limit {
				_ = writeFrame(ctx, conn, []any{"CLOSE", sub})
				return result, nil
			}
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", common.ErrTransport, c.url, err)
	}
	return conn, nil
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame any) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}
	return conn.WriteJSON(frame)
}

func readFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
	return conn.ReadJSON(v)
}

func frameLabel(raw json.RawMessage) string {
	var label string
	_ = json.Unmarshal(raw, &label)
	return label
}
