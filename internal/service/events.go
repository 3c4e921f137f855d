package service

import (
	"time"

	"casino-tournaments/internal/model"
)

// Publisher receives change notifications. Publish must not block the caller
// for long; slow consumers queue or drop internally.
type Publisher interface {
	Publish(evt model.Event)
}

// Publishers fans an event out to several publishers in order.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(evt model.Event) {
	for _, p := range ps {
		if p != nil {
			p.Publish(evt)
		}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.Event) {}

func orNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func newEvent(typ model.EventType, tournamentID string, at time.Time, payload any) model.Event {
	return model.Event{Type: typ, TournamentID: tournamentID, At: at, Payload: payload}
}
