package leaderboard

import "time"

type Entry struct {
	Rank                int        `json:"rank"`
	UserID              string     `json:"user_id"`
	Username            string     `json:"username"`
	AvatarURL           string     `json:"avatar_url,omitempty"`
	RouteID             string     `json:"route_id"`
	Score               int        `json:"score"`
	WaypointsCompleted  int        `json:"waypoints_completed"`
	ChallengesCompleted int        `json:"challenges_completed"`
	LastCompletedAt     *time.Time `json:"last_completed_at,omitempty"`
}
