package pvpchess

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/park285/vaticano-chess/pkg/chessdto"
)

// Sink receives the events a game produces.
type Sink interface {
	Publish(ctx context.Context, ev chessdto.Event) error
}

// RedisSink publishes events on the game's pub/sub channel.
type RedisSink struct {
	rdb *redis.Client
}

func NewRedisSink(rdb *redis.Client) *RedisSink { return &RedisSink{rdb: rdb} }

func (s *RedisSink) Publish(ctx context.Context, ev chessdto.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.rdb.Publish(ctx, EventsChannel(ev.GameID), raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// MultiSink fans an event out to every sink and reports all failures.
type MultiSink []Sink

func (ms MultiSink) Publish(ctx context.Context, ev chessdto.Event) error {
	var err error
	for _, s := range ms {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Publish(ctx, ev))
	}
	return err
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev chessdto.Event) error

func (f SinkFunc) Publish(ctx context.Context, ev chessdto.Event) error { return f(ctx, ev) }
