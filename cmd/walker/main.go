// Command walker replays a recorded GPS track against the API as a logged-in
// player: it publishes the position, polls other players and optionally
// tries to complete a waypoint whenever in range.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-trailhunt/internal/apiclient"
	"backend-trailhunt/internal/completion"
	"backend-trailhunt/internal/presence"
	"backend-trailhunt/internal/tracker"
)

type options struct {
	api          string
	username     string
	track        string
	step         time.Duration
	loop         bool
	publishEvery time.Duration
	pollEvery    time.Duration
	waypointID   string
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("walker", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.api, "api", getenv("TRAILHUNT_API", "http://localhost:8080"), "base URL of the API")
	fs.StringVar(&o.username, "user", getenv("TRAILHUNT_USER", ""), "username to log in with")
	fs.StringVar(&o.track, "track", "", "CSV track: lat,lng,accuracy,heading,speed,timestamp")
	fs.DurationVar(&o.step, "step", time.Second, "delay between track readings")
	fs.BoolVar(&o.loop, "loop", false, "restart the track when it ends")
	fs.DurationVar(&o.publishEvery, "publish", tracker.DefaultPublishInterval, "location publish interval")
	fs.DurationVar(&o.pollEvery, "poll", tracker.DefaultPollInterval, "presence poll interval")
	fs.StringVar(&o.waypointID, "waypoint", "", "waypoint to complete once in range")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.username == "" || o.track == "" {
		return options{}, errors.New("-user and -track are required")
	}
	return o, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("walker: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	f, err := os.Open(opts.track)
	if err != nil {
		return err
	}
	track, err := tracker.LoadTrack(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	client := apiclient.New(opts.api)
	user, err := client.Login(ctx, opts.username)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Printf("logged in as %s (%s), %d readings to replay", user.Username, user.ID, len(track))

	sampler := tracker.NewSampler(&tracker.ReplaySource{Track: track, Interval: opts.step, Loop: opts.loop})
	if err := sampler.SetLoggedIn(ctx, true); err != nil {
		return fmt.Errorf("first fix: %w", err)
	}
	defer sampler.Stop()

	publisher := tracker.NewPublisher(sampler, client)
	publisher.Interval = opts.publishEvery
	publisher.MinInterval = opts.publishEvery

	poller := tracker.NewPresencePoller(client, func(locs []presence.LiveLocation) {
		log.Printf("%d other players on the map", len(locs))
	})
	poller.Interval = opts.pollEvery
	poller.OnError = func(err error) { log.Printf("poll presence: %v", err) }

	go func() { _ = poller.Run(ctx) }()
	if opts.waypointID != "" {
		go completeWhenInRange(ctx, client, sampler, opts.waypointID, opts.publishEvery)
	}
	return publisher.Run(ctx)
}

func completeWhenInRange(ctx context.Context, client *apiclient.Client, sampler *tracker.Sampler, waypointID string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		r, ok := sampler.Latest()
		if !ok {
			continue
		}
		res, err := client.CompleteWaypoint(ctx, waypointID, r.Lat, r.Lng)
		switch {
		case err != nil:
			log.Printf("complete %s: %v", waypointID, err)
		case res.Success:
			log.Printf("completed %s: +%d points", res.WaypointName, res.PointsEarned)
			return
		case res.Code == completion.CodeAlreadyCompleted:
			log.Printf("%s already completed", waypointID)
			return
		default:
			log.Printf("complete %s: %s", waypointID, res.Error)
		}
	}
}
