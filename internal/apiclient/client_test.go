package apiclient

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"backend-trailhunt/internal/auth"
	"backend-trailhunt/internal/completion"
	"backend-trailhunt/internal/leaderboard"
	"backend-trailhunt/internal/presence"
	"backend-trailhunt/internal/tracker"

	"github.com/gofiber/fiber/v2"
)

const testToken = "token-123"

func startServer(t *testing.T) (string, chan presence.Update) {
	t.Helper()
	updates := make(chan presence.Update, 4)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	requireAuth := func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "Bearer "+testToken {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}
		return c.Next()
	}

	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req auth.LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Username == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username is required")
		}
		return c.JSON(fiber.Map{
			"user":   auth.User{ID: "user-1", Username: req.Username},
			"tokens": auth.TokenResponse{AccessToken: testToken, TokenType: "Bearer"},
		})
	})
	app.Put("/presence", requireAuth, func(c *fiber.Ctx) error {
		var u presence.Update
		if err := c.BodyParser(&u); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		updates <- u
		return c.JSON(presence.LiveLocation{UserID: "user-1", Lat: u.Lat, Lng: u.Lng})
	})
	app.Get("/presence", requireAuth, func(c *fiber.Ctx) error {
		return c.JSON([]presence.LiveLocation{{UserID: "user-2", Lat: 16.46, Lng: 107.59}})
	})
	app.Post("/completions/waypoints/:id", requireAuth, func(c *fiber.Ctx) error {
		if c.Params("id") == "far" {
			d, req := 40.0, 15.0
			res := completion.Result{Code: completion.CodeTooFar, Error: "too far", Distance: &d, Required: &req}
			return c.Status(res.HTTPStatus()).JSON(res)
		}
		return c.JSON(completion.Result{Success: true, PointsEarned: 10, WaypointName: "Ngo Mon Gate"})
	})
	app.Get("/leaderboard/:routeID", func(c *fiber.Ctx) error {
		return c.JSON([]leaderboard.Entry{{Rank: 1, UserID: "user-1", RouteID: c.Params("routeID"), Score: 10}})
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String(), updates
}

func TestClientFlow(t *testing.T) {
	baseURL, updates := startServer(t)
	c := New(baseURL + "/")
	ctx := context.Background()

	if err := c.SendLocation(ctx, tracker.Reading{Lat: 1, Lng: 1}); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected not logged in, got %v", err)
	}

	user, err := c.Login(ctx, "walker")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "user-1" || c.User().Username != "walker" {
		t.Fatalf("unexpected user %+v", user)
	}

	if err := c.SendLocation(ctx, tracker.Reading{Lat: 16.46, Lng: 107.59, Accuracy: 4}); err != nil {
		t.Fatalf("send location: %v", err)
	}
	select {
	case u := <-updates:
		if u.Lat != 16.46 || u.Accuracy == nil || *u.Accuracy != 4 {
			t.Fatalf("unexpected update %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatalf("server did not receive update")
	}

	locs, err := c.ListLocations(ctx)
	if err != nil || len(locs) != 1 || locs[0].UserID != "user-2" {
		t.Fatalf("unexpected locations %+v %v", locs, err)
	}

	res, err := c.CompleteWaypoint(ctx, "wp-1", 16.46, 107.59)
	if err != nil || !res.Success || res.PointsEarned != 10 {
		t.Fatalf("unexpected completion %+v %v", res, err)
	}

	entries, err := c.Leaderboard(ctx, "route-1")
	if err != nil || len(entries) != 1 || entries[0].RouteID != "route-1" {
		t.Fatalf("unexpected leaderboard %+v %v", entries, err)
	}
}

func TestClientRejectionsAndErrors(t *testing.T) {
	baseURL, _ := startServer(t)
	c := New(baseURL)
	ctx := context.Background()

	var se *StatusError
	if _, err := c.Login(ctx, ""); !errors.As(err, &se) || se.Status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}

	if _, err := c.Login(ctx, "walker"); err != nil {
		t.Fatalf("login: %v", err)
	}
	res, err := c.CompleteWaypoint(ctx, "far", 0, 0)
	if err != nil {
		t.Fatalf("rejection should not be an error: %v", err)
	}
	if res.Success || res.Code != completion.CodeTooFar || *res.Required != 15 {
		t.Fatalf("unexpected result %+v", res)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := c.ListLocations(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
