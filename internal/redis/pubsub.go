package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ShowtimesPubSub fans seat-map changes out to every running instance.
type ShowtimesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewShowtimesPubSub(rdb *redis.Client) *ShowtimesPubSub {
	return &ShowtimesPubSub{
		rdb:     rdb,
		channel: ChannelShowtimesChanged(),
	}
}

type showtimeChangedMsg struct {
	Type       string    `json:"type"`
	ShowtimeID uuid.UUID `json:"showtime_id"`
	TsUnix     int64     `json:"ts_unix"`
}

func (p *ShowtimesPubSub) PublishShowtimeChanged(ctx context.Context, showtimeID uuid.UUID) error {
	const op = "redisx.ShowtimesPubSub.PublishShowtimeChanged"

	b, err := json.Marshal(showtimeChangedMsg{
		Type:       "showtime_changed",
		ShowtimeID: showtimeID,
		TsUnix:     time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe blocks, calling handler for every change message, until ctx is
// done or the subscription is closed.
func (p *ShowtimesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, showtimeID uuid.UUID)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev showtimeChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.ShowtimeID != uuid.Nil {
				handler(ctx, ev.ShowtimeID)
			}
		}
	}
}
