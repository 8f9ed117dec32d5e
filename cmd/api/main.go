package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-trailhunt/internal/config"
	"backend-trailhunt/internal/db"
	"backend-trailhunt/internal/events"
	"backend-trailhunt/internal/presence"
	"backend-trailhunt/internal/server"
	"backend-trailhunt/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Printf("postgres connection failed: %v", err)
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	var deps server.Deps
	var querier db.TxQuerier
	if pg != nil {
		querier = pg
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pg); err != nil {
				log.Printf("migration failed: %v", err)
			}
		}
	}

	photos, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		log.Printf("photo storage disabled: %v", err)
	} else if photos != nil {
		deps.Photos = photos
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		deps.Events = events.NewSink(events.NewKafkaWriter(brokers, cfg.KafkaCompletionsTopic))
	}

	srv, err := server.NewServer(cfg, querier, rdb, deps)
	if err != nil {
		if deps.Events != nil {
			_ = deps.Events.Close()
		}
		return err
	}

	var janitor *presence.Janitor
	if pg != nil {
		janitor, err = presence.StartJanitor(srv.Presence, cfg.PresenceRetention, cfg.PresencePruneInterval)
		if err != nil {
			log.Printf("presence janitor not started: %v", err)
		}
	}

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if janitor != nil {
		if err := janitor.Stop(); err != nil {
			log.Printf("stop presence janitor: %v", err)
		}
	}
	if deps.Events != nil {
		if err := deps.Events.Close(); err != nil {
			log.Printf("close event sink: %v", err)
		}
	}
	srv.Stream.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
