package challenge

import "time"

type Challenge struct {
	ID          string    `json:"id"`
	RouteID     string    `json:"route_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	Category    *string   `json:"category,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}
