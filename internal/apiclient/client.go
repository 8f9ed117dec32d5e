// Package apiclient talks to the trailhunt HTTP API on behalf of a walker.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"backend-trailhunt/internal/auth"
	"backend-trailhunt/internal/completion"
	"backend-trailhunt/internal/leaderboard"
	"backend-trailhunt/internal/presence"
	"backend-trailhunt/internal/tracker"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 10 * time.Second

var ErrNotLoggedIn = errors.New("apiclient: not logged in")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

type Client struct {
	baseURL string
	Timeout time.Duration

	mu    sync.RWMutex
	token string
	user  auth.User
}

func New(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), Timeout: defaultTimeout}
}

func (c *Client) User() auth.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Login signs in by username and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, username string) (auth.User, error) {
	var resp struct {
		User   auth.User          `json:"user"`
		Tokens auth.TokenResponse `json:"tokens"`
	}
	a := fiber.Post(c.baseURL + "/auth/login").JSON(auth.LoginRequest{Username: username})
	if err := c.do(ctx, a, false, &resp); err != nil {
		return auth.User{}, err
	}
	c.mu.Lock()
	c.token, c.user = resp.Tokens.AccessToken, resp.User
	c.mu.Unlock()
	return resp.User, nil
}

// SendLocation satisfies tracker.LocationSender.
func (c *Client) SendLocation(ctx context.Context, r tracker.Reading) error {
	update := presence.Update{Lat: r.Lat, Lng: r.Lng, Heading: r.Heading, Speed: r.Speed}
	if r.Accuracy > 0 {
		acc := r.Accuracy
		update.Accuracy = &acc
	}
	return c.do(ctx, fiber.Put(c.baseURL+"/presence").JSON(update), true, nil)
}

// ListLocations satisfies tracker.LocationLister.
func (c *Client) ListLocations(ctx context.Context) ([]presence.LiveLocation, error) {
	var locs []presence.LiveLocation
	if err := c.do(ctx, fiber.Get(c.baseURL+"/presence"), true, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// CompleteWaypoint returns the server's verdict. Rejections such as too_far
// come back as a Result, not an error.
func (c *Client) CompleteWaypoint(ctx context.Context, waypointID string, lat, lng float64) (completion.Result, error) {
	body := map[string]float64{"lat": lat, "lng": lng}
	a := fiber.Post(c.baseURL + "/completions/waypoints/" + waypointID).JSON(body)

	var res completion.Result
	err := c.do(ctx, a, true, &res)
	var se *StatusError
	if errors.As(err, &se) && res.Code != "" {
		return res, nil
	}
	return res, err
}

func (c *Client) Leaderboard(ctx context.Context, routeID string) ([]leaderboard.Entry, error) {
	var entries []leaderboard.Entry
	if err := c.do(ctx, fiber.Get(c.baseURL+"/leaderboard/"+routeID), false, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, a *fiber.Agent, authed bool, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if authed {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token == "" {
			return ErrNotLoggedIn
		}
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	timeout := c.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	a.Timeout(timeout)

	var (
		status int
		body   []byte
		errs   []error
	)
	if out != nil {
		status, body, errs = a.Struct(out)
	} else {
		status, body, errs = a.Bytes()
	}
	if status >= 200 && status < 300 && len(errs) > 0 {
		return fmt.Errorf("apiclient: %w", errors.Join(errs...))
	}
	if status == 0 && len(errs) > 0 {
		return fmt.Errorf("apiclient: %w", errors.Join(errs...))
	}
	if status < 200 || status >= 300 {
		return &StatusError{Status: status, Body: string(body)}
	}
	return nil
}
