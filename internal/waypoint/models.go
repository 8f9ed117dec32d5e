package waypoint

import "time"

type Waypoint struct {
	ID                string    `json:"id"`
	RouteID           string    `json:"route_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Lat               float64   `json:"lat"`
	Lng               float64   `json:"lng"`
	Points            int       `json:"points"`
	Icon              string    `json:"icon"`
	Category          *string   `json:"category,omitempty"`
	DirectionsNote    *string   `json:"directions_note,omitempty"`
	SortOrder         int       `json:"sort_order"`
	CompletionRadiusM *float64  `json:"completion_radius_m,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	Points            *int     `json:"points"`
	Icon              *string  `json:"icon"`
	Category          *string  `json:"category"`
	DirectionsNote    *string  `json:"directions_note"`
	CompletionRadiusM *float64 `json:"completion_radius_m"`
}

const DefaultIcon = "checkpoint"

var icons = map[string]bool{
	"checkpoint":    true,
	"viewpoint":     true,
	"food":          true,
	"fuel":          true,
	"accommodation": true,
	"start":         true,
	"finish":        true,
	"danger":        true,
	"photo":         true,
	"water":         true,
}

// ValidIcon reports whether icon is one of the map marker kinds.
func ValidIcon(icon string) bool {
	return icons[icon]
}
