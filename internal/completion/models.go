package completion

import (
	"net/http"
	"time"
)

type Kind string

const (
	KindWaypoint  Kind = "waypoint"
	KindChallenge Kind = "challenge"
)

type Code string

const (
	CodeNotAuthenticated  Code = "not_authenticated"
	CodeTargetNotFound    Code = "target_not_found"
	CodeAlreadyCompleted  Code = "already_completed"
	CodeTooFar            Code = "too_far"
	CodeTransientFailure  Code = "transient_failure"
	CodeValidationFailure Code = "validation_failure"
)

// Result is the body of every completion response, success or not.
type Result struct {
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
	Code           Code     `json:"code,omitempty"`
	PointsEarned   int      `json:"points_earned,omitempty"`
	WaypointName   string   `json:"waypoint_name,omitempty"`
	ChallengeTitle string   `json:"challenge_title,omitempty"`
	Distance       *float64 `json:"distance,omitempty"`
	Required       *float64 `json:"required,omitempty"`
}

// Outcome is "success" or the failure code.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	return string(r.Code)
}

func (r Result) HTTPStatus() int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Code {
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeTargetNotFound:
		return http.StatusNotFound
	case CodeAlreadyCompleted:
		return http.StatusConflict
	case CodeTooFar:
		return http.StatusUnprocessableEntity
	case CodeTransientFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// Event describes a committed ledger row.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	UserID      string    `json:"user_id"`
	RouteID     string    `json:"route_id"`
	TargetID    string    `json:"target_id"`
	Title       string    `json:"title"`
	Points      int       `json:"points"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

type GalleryItem struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	ChallengeID    string    `json:"challenge_id"`
	ChallengeTitle string    `json:"challenge_title"`
	PhotoURL       string    `json:"photo_url"`
	Points         int       `json:"points"`
	CompletedAt    time.Time `json:"completed_at"`
}

type Progress struct {
	WaypointIDs  []string `json:"waypoint_ids"`
	ChallengeIDs []string `json:"challenge_ids"`
}
