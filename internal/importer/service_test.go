package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backend-trailhunt/internal/challenge"
	"backend-trailhunt/internal/route"
	"backend-trailhunt/internal/waypoint"
)

type fakeRoutes struct {
	active  route.Route
	err     error
	created []route.Route
}

func (f *fakeRoutes) Active(context.Context) (route.Route, error) {
	return f.active, f.err
}

func (f *fakeRoutes) CreateActive(_ context.Context, r route.Route) (route.Route, error) {
	r.ID = "route-new"
	r.IsActive = true
	f.created = append(f.created, r)
	return r, nil
}

type fakeWaypoints struct {
	routeID string
	wps     []waypoint.Waypoint
}

func (f *fakeWaypoints) ReplaceForRoute(_ context.Context, routeID string, wps []waypoint.Waypoint) (int, error) {
	f.routeID, f.wps = routeID, wps
	return len(wps), nil
}

type fakeChallenges struct {
	routeID string
	chs     []challenge.Challenge
}

func (f *fakeChallenges) ReplaceForRoute(_ context.Context, routeID string, chs []challenge.Challenge) (int, error) {
	f.routeID, f.chs = routeID, chs
	return len(chs), nil
}

func TestImportRouteActivates(t *testing.T) {
	routes := &fakeRoutes{}
	svc := NewService(routes, &fakeWaypoints{}, &fakeChallenges{})
	var changed []string
	svc.OnChange(func(_ context.Context, id string) { changed = append(changed, id) })

	r, err := svc.ImportRoute(context.Background(), strings.NewReader("name,start_date,end_date\nLoop,2026-10-01,2026-10-02\n"))
	if err != nil || r.ID != "route-new" || !r.IsActive {
		t.Fatalf("import route: %v %+v", err, r)
	}
	if len(routes.created) != 1 || len(changed) != 1 {
		t.Fatalf("expected one creation and one change notification")
	}
}

func TestImportWaypointsTargetsActiveRoute(t *testing.T) {
	wps := &fakeWaypoints{}
	svc := NewService(&fakeRoutes{active: route.Route{ID: "route-1"}}, wps, &fakeChallenges{})

	summary, err := svc.ImportWaypoints(context.Background(), strings.NewReader("name,latitude,longitude\nA,1,2\nB,3,4\n"))
	if err != nil || summary.Imported != 2 || summary.RouteID != "route-1" {
		t.Fatalf("import waypoints: %v %+v", err, summary)
	}
	if wps.routeID != "route-1" || len(wps.wps) != 2 {
		t.Fatalf("unexpected replace call %+v", wps)
	}
}

func TestImportChallengesNoActiveRoute(t *testing.T) {
	chs := &fakeChallenges{}
	svc := NewService(&fakeRoutes{err: route.ErrNoActiveRoute}, &fakeWaypoints{}, chs)

	_, err := svc.ImportChallenges(context.Background(), strings.NewReader("title,description,points\nA,a,1\n"))
	if !errors.Is(err, route.ErrNoActiveRoute) {
		t.Fatalf("expected no active route, got %v", err)
	}
	if chs.chs != nil {
		t.Fatalf("nothing should be written")
	}
}

func TestImportInvalidFileWritesNothing(t *testing.T) {
	wps := &fakeWaypoints{}
	svc := NewService(&fakeRoutes{active: route.Route{ID: "route-1"}}, wps, &fakeChallenges{})

	if _, err := svc.ImportWaypoints(context.Background(), strings.NewReader("name,latitude,longitude\n,x,y\n")); err == nil {
		t.Fatalf("expected validation error")
	}
	if wps.wps != nil {
		t.Fatalf("invalid file must not replace rows")
	}
}
