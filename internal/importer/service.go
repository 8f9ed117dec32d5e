package importer

import (
	"context"
	"io"
	"log"

	"backend-trailhunt/internal/challenge"
	"backend-trailhunt/internal/route"
	"backend-trailhunt/internal/waypoint"
)

type RouteStore interface {
	Active(ctx context.Context) (route.Route, error)
	CreateActive(ctx context.Context, r route.Route) (route.Route, error)
}

type WaypointStore interface {
	ReplaceForRoute(ctx context.Context, routeID string, wps []waypoint.Waypoint) (int, error)
}

type ChallengeStore interface {
	ReplaceForRoute(ctx context.Context, routeID string, chs []challenge.Challenge) (int, error)
}

type Summary struct {
	RouteID  string `json:"route_id"`
	Imported int    `json:"imported"`
}

// Service loads CSV exports into the catalog. Waypoint and challenge files
// always target the active route and replace its existing rows.
type Service struct {
	routes     RouteStore
	waypoints  WaypointStore
	challenges ChallengeStore
	onChange   func(ctx context.Context, routeID string)
}

func NewService(routes RouteStore, waypoints WaypointStore, challenges ChallengeStore) *Service {
	return &Service{routes: routes, waypoints: waypoints, challenges: challenges}
}

// OnChange registers fn to run after a successful import.
func (s *Service) OnChange(fn func(ctx context.Context, routeID string)) {
	s.onChange = fn
}

func (s *Service) ImportRoute(ctx context.Context, src io.Reader) (route.Route, error) {
	input, err := ParseRoute(src)
	if err != nil {
		return route.Route{}, err
	}
	r, err := s.routes.CreateActive(ctx, input)
	if err != nil {
		return route.Route{}, err
	}
	log.Printf("import: route %q (%s) is now active", r.Name, r.ID)
	s.changed(ctx, r.ID)
	return r, nil
}

func (s *Service) ImportWaypoints(ctx context.Context, src io.Reader) (Summary, error) {
	wps, err := ParseWaypoints(src)
	if err != nil {
		return Summary{}, err
	}
	active, err := s.routes.Active(ctx)
	if err != nil {
		return Summary{}, err
	}
	n, err := s.waypoints.ReplaceForRoute(ctx, active.ID, wps)
	if err != nil {
		return Summary{}, err
	}
	log.Printf("import: %d waypoints for route %s", n, active.ID)
	s.changed(ctx, active.ID)
	return Summary{RouteID: active.ID, Imported: n}, nil
}

func (s *Service) ImportChallenges(ctx context.Context, src io.Reader) (Summary, error) {
	chs, err := ParseChallenges(src)
	if err != nil {
		return Summary{}, err
	}
	active, err := s.routes.Active(ctx)
	if err != nil {
		return Summary{}, err
	}
	n, err := s.challenges.ReplaceForRoute(ctx, active.ID, chs)
	if err != nil {
		return Summary{}, err
	}
	log.Printf("import: %d challenges for route %s", n, active.ID)
	s.changed(ctx, active.ID)
	return Summary{RouteID: active.ID, Imported: n}, nil
}

func (s *Service) changed(ctx context.Context, routeID string) {
	if s.onChange != nil {
		s.onChange(ctx, routeID)
	}
}
