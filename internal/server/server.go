package server

import (
	"context"
	"log"

	"backend-trailhunt/internal/auth"
	"backend-trailhunt/internal/challenge"
	"backend-trailhunt/internal/completion"
	"backend-trailhunt/internal/config"
	"backend-trailhunt/internal/db"
	"backend-trailhunt/internal/events"
	"backend-trailhunt/internal/importer"
	"backend-trailhunt/internal/leaderboard"
	"backend-trailhunt/internal/metrics"
	"backend-trailhunt/internal/presence"
	"backend-trailhunt/internal/route"
	"backend-trailhunt/internal/storage"
	"backend-trailhunt/internal/stream"
	"backend-trailhunt/internal/waypoint"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// Deps are the optional collaborators of a Server. A nil Photos store
// disables uploads and a nil Events sink disables the completion feed.
type Deps struct {
	Photos storage.ObjectStore
	Events *events.Sink
}

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       db.TxQuerier
	Redis    *redis.Client
	Stream   *stream.Hub
	Metrics  *metrics.Metrics
	Presence *presence.Service
}

func NewServer(cfg config.Config, pg db.TxQuerier, redisClient *redis.Client, deps Deps) (*Server, error) {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Password",
		MaxAge:       86400,
	}))

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      pg,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient),
		Metrics: metrics.New(),
	}

	if err := registerRoutes(s, deps); err != nil {
		s.Stream.Close()
		return nil, err
	}
	return s, nil
}

func registerRoutes(s *Server, deps Deps) error {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", s.Metrics.Handler())

	gate, err := auth.NewAdminGate(s.Cfg.AdminPassword)
	if err != nil {
		return err
	}
	if !gate.Configured() {
		log.Printf("ADMIN_PASSWORD not set, admin endpoints will refuse requests")
	}
	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	adminMiddleware := gate.Middleware()

	routes := route.NewService(s.DB)
	waypoints := waypoint.NewService(s.DB)
	challenges := challenge.NewService(s.DB)

	board := leaderboard.NewService(s.DB, s.Redis, s.Cfg.LeaderboardCacheTTL)
	board.ObserveCache(s.Metrics.LeaderboardCache)
	waypoints.OnChange(board.Invalidate)
	challenges.OnChange(board.Invalidate)

	photos := storage.NewService(s.DB, deps.Photos, s.Cfg.S3Bucket, s.Cfg.PublicBaseURL)

	opts := []completion.Option{
		completion.WithPhotoRemover(photos),
		completion.WithRemovalListener(board.Invalidate),
		completion.WithListener(board.OnCompletion),
		completion.WithListener(func(_ context.Context, ev completion.Event) {
			if err := s.Stream.BroadcastJSON(stream.RouteTopic(ev.RouteID), fiber.Map{"type": "completion", "event": ev}); err != nil {
				log.Printf("broadcast completion %s: %v", ev.ID, err)
			}
		}),
		completion.WithObserver(func(kind completion.Kind, res completion.Result) {
			s.Metrics.CompletionOutcome(string(kind), res.Outcome())
		}),
	}
	if deps.Events != nil {
		opts = append(opts, completion.WithListener(deps.Events.OnCompletion))
	}
	engine := completion.NewEngine(s.DB, s.Cfg.CompletionRadiusM, opts...)

	s.Presence = presence.NewService(s.DB, s.Cfg.PresenceStaleAfter)
	s.Presence.OnPublish(s.Metrics.PresencePublished)

	imports := importer.NewService(routes, waypoints, challenges)
	imports.OnChange(board.Invalidate)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), routes, jwtMiddleware)
	auth.RegisterAdminRoutes(s.App.Group("/admin"), gate)
	route.RegisterAdminRoutes(s.App.Group("/admin"), routes, adminMiddleware)
	importer.RegisterRoutes(s.App.Group("/admin/import"), imports, adminMiddleware)
	route.RegisterRoutes(s.App.Group("/routes"), routes, jwtMiddleware, adminMiddleware)
	waypoint.RegisterRoutes(s.App.Group("/waypoints"), waypoints, adminMiddleware)
	challenge.RegisterRoutes(s.App.Group("/challenges"), challenges, adminMiddleware)
	completion.RegisterRoutes(s.App.Group("/completions"), engine, jwtMiddleware)
	completion.RegisterGalleryRoutes(s.App.Group("/gallery"), engine, adminMiddleware)
	leaderboard.RegisterRoutes(s.App.Group("/leaderboard"), board, jwtMiddleware)
	presence.RegisterRoutes(s.App.Group("/presence"), s.Presence, jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), photos, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
	return nil
}
