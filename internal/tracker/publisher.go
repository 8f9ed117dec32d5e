package tracker

import (
	"context"
	"log"
	"time"
)

const (
	DefaultPublishInterval = 15 * time.Second
	DefaultPollInterval    = 20 * time.Second
)

// LocationSender delivers the user's position to the server.
type LocationSender interface {
	SendLocation(ctx context.Context, r Reading) error
}

type latestReading interface {
	Latest() (Reading, bool)
}

// Publisher sends the sampler's latest reading on start and then every
// Interval, never more often than MinInterval.
type Publisher struct {
	source      latestReading
	sender      LocationSender
	Interval    time.Duration
	MinInterval time.Duration

	now      func() time.Time
	lastSent time.Time
}

func NewPublisher(source latestReading, sender LocationSender) *Publisher {
	return &Publisher{
		source:      source,
		sender:      sender,
		Interval:    DefaultPublishInterval,
		MinInterval: DefaultPublishInterval,
		now:         time.Now,
	}
}

// Run publishes until ctx is cancelled and returns ctx.Err().
func (p *Publisher) Run(ctx context.Context) error {
	p.publish(ctx, false)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.publish(ctx, true)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, tick bool) bool {
	r, ok := p.source.Latest()
	if !ok {
		return false
	}
	now := p.now()
	if !p.due(now, tick) {
		return false
	}
	if err := p.sender.SendLocation(ctx, r); err != nil {
		log.Printf("tracker: send location: %v", err)
		return false
	}
	p.lastSent = now
	return true
}

// due applies MinInterval. Ticks arrive Interval apart give or take
// scheduling jitter, so a tick is measured with half an Interval of slack.
func (p *Publisher) due(now time.Time, tick bool) bool {
	if p.lastSent.IsZero() {
		return true
	}
	floor := p.MinInterval
	if tick {
		floor -= p.Interval / 2
	}
	return now.Sub(p.lastSent) >= floor
}
