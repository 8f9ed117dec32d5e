package route

import (
	"time"

	"backend-trailhunt/internal/shared/geo"
)

type Route struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open reports whether at lies inside the route's start/end window.
func (r Route) Open(at time.Time) bool {
	return !at.Before(r.StartDate) && !at.After(r.EndDate)
}

type Participant struct {
	UserID   string    `json:"user_id"`
	RouteID  string    `json:"route_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type MapView struct {
	Center geo.Point   `json:"center"`
	Bounds *geo.Bounds `json:"bounds,omitempty"`
}

// Stats are the admin dashboard counts. Photos counts challenge completions.
type Stats struct {
	Routes        int     `json:"routes"`
	Waypoints     int     `json:"waypoints"`
	Challenges    int     `json:"challenges"`
	Users         int     `json:"users"`
	Photos        int     `json:"photos"`
	ActiveRouteID *string `json:"active_route_id"`
}
