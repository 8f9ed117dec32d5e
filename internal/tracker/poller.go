package tracker

import (
	"context"
	"time"

	"backend-trailhunt/internal/presence"
)

type LocationLister interface {
	ListLocations(ctx context.Context) ([]presence.LiveLocation, error)
}

// PresencePoller fetches other users' positions on start and every Interval.
type PresencePoller struct {
	lister   LocationLister
	Interval time.Duration
	OnUpdate func([]presence.LiveLocation)
	OnError  func(error)
}

func NewPresencePoller(lister LocationLister, onUpdate func([]presence.LiveLocation)) *PresencePoller {
	return &PresencePoller{lister: lister, Interval: DefaultPollInterval, OnUpdate: onUpdate}
}

func (p *PresencePoller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *PresencePoller) poll(ctx context.Context) {
	locs, err := p.lister.ListLocations(ctx)
	if err != nil {
		if p.OnError != nil && ctx.Err() == nil {
			p.OnError(err)
		}
		return
	}
	if p.OnUpdate != nil {
		p.OnUpdate(locs)
	}
}
