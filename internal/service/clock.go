package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/model"
)

// ClockStore is the storage the lifecycle clock needs.
type ClockStore interface {
	ActivateStarted(ctx context.Context, now time.Time) ([]string, error)
	CompleteEnded(ctx context.Context, now time.Time) ([]string, error)
}

// LifecycleClock advances tournament status by time.
type LifecycleClock struct {
	store     ClockStore
	publisher Publisher
}

// NewLifecycleClock creates a new LifecycleClock instance.
func NewLifecycleClock(store ClockStore, publisher Publisher) *LifecycleClock {
	return &LifecycleClock{store: store, publisher: orNop(publisher)}
}

// Tick moves upcoming tournaments that have started to active, then active
// tournaments that have ended to completed. A tournament whose whole window
// passed since the last tick goes through both steps and is listed twice.
// Writing results is left to the Finalizer.
func (c *LifecycleClock) Tick(ctx context.Context, now time.Time) (*model.TickResult, error) {
	started, err := c.store.ActivateStarted(ctx, now)
	if err != nil {
		return nil, translate(err)
	}
	for _, id := range started {
		c.publisher.Publish(newEvent(model.EventStatusChanged, id, now,
			model.StatusChange{Status: model.StatusActive}))
	}

	ended, err := c.store.CompleteEnded(ctx, now)
	if err != nil {
		return nil, translate(err)
	}
	for _, id := range ended {
		c.publisher.Publish(newEvent(model.EventStatusChanged, id, now,
			model.StatusChange{Status: model.StatusCompleted}))
	}

	if len(started) > 0 || len(ended) > 0 {
		log.Info().
			Strs("started", started).
			Strs("ended", ended).
			Time("now", now).
			Msg("Tournament statuses advanced")
	}

	return &model.TickResult{Started: nonNil(started), Ended: nonNil(ended)}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
