package presence

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Janitor periodically removes stale live locations.
type Janitor struct {
	sched gocron.Scheduler
}

func StartJanitor(svc *Service, retention, every time.Duration) (*Janitor, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := svc.Prune(ctx, retention)
			if err != nil {
				log.Printf("[presence] prune error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[presence] pruned %d stale locations", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return &Janitor{sched: sched}, nil
}

func (j *Janitor) Stop() error {
	return j.sched.Shutdown()
}
