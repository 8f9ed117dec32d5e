package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"backend-trailhunt/internal/completion"
	"backend-trailhunt/internal/db"

	"github.com/redis/go-redis/v9"
)

var ErrNotParticipant = errors.New("user is not on this leaderboard")

// CacheObserver sees leaderboard cache lookups.
type CacheObserver func(hit bool)

type Service struct {
	db       db.Querier
	redis    *redis.Client
	ttl      time.Duration
	observer CacheObserver
}

func NewService(q db.Querier, redisClient *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{db: q, redis: redisClient, ttl: ttl}
}

func (s *Service) ObserveCache(fn CacheObserver) {
	s.observer = fn
}

func cacheKey(routeID string) string {
	return "leaderboard:" + routeID
}

const leaderboardSQL = `
	WITH ledger AS (
		SELECT user_id, points_awarded, completed_at, 1 AS waypoint, 0 AS challenge
		FROM waypoint_completions WHERE route_id=$1
		UNION ALL
		SELECT user_id, points_awarded, completed_at, 0, 1
		FROM challenge_completions WHERE route_id=$1
	),
	members AS (
		SELECT user_id FROM route_participants WHERE route_id=$1
		UNION
		SELECT user_id FROM ledger
	)
	SELECT u.id, u.username, u.avatar_url,
	       COALESCE(SUM(l.points_awarded), 0)::int,
	       COALESCE(SUM(l.waypoint), 0)::int,
	       COALESCE(SUM(l.challenge), 0)::int,
	       MAX(l.completed_at)
	FROM members m
	JOIN users u ON u.id = m.user_id
	LEFT JOIN ledger l ON l.user_id = m.user_id
	GROUP BY u.id, u.username, u.avatar_url
`

// Leaderboard returns the ranked standings of a route. Scores are sums of
// points_awarded over both ledgers.
func (s *Service) Leaderboard(ctx context.Context, routeID string) ([]Entry, error) {
	if entries, ok := s.cached(ctx, routeID); ok {
		return entries, nil
	}

	entries, err := s.compute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			err = s.redis.Set(ctx, cacheKey(routeID), payload, s.ttl).Err()
		}
		if err != nil {
			log.Printf("leaderboard cache write %s: %v", routeID, err)
		}
	}
	return entries, nil
}

func (s *Service) compute(ctx context.Context, routeID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, leaderboardSQL, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e := Entry{RouteID: routeID}
		if err := rows.Scan(&e.UserID, &e.Username, &e.AvatarURL, &e.Score,
			&e.WaypointsCompleted, &e.ChallengesCompleted, &e.LastCompletedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return Rank(entries), nil
}

func (s *Service) cached(ctx context.Context, routeID string) ([]Entry, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, cacheKey(routeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("leaderboard cache read %s: %v", routeID, err)
		}
		s.observe(false)
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.observe(false)
		return nil, false
	}
	s.observe(true)
	return entries, true
}

func (s *Service) observe(hit bool) {
	if s.observer != nil {
		s.observer(hit)
	}
}

// Entry returns userID's own standing on routeID.
func (s *Service) Entry(ctx context.Context, routeID, userID string) (Entry, error) {
	entries, err := s.Leaderboard(ctx, routeID)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e, nil
		}
	}
	return Entry{}, ErrNotParticipant
}

func (s *Service) Invalidate(ctx context.Context, routeID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(routeID)).Err(); err != nil {
		log.Printf("leaderboard cache invalidate %s: %v", routeID, err)
	}
}

// OnCompletion drops the cached standings of the event's route.
func (s *Service) OnCompletion(ctx context.Context, ev completion.Event) {
	s.Invalidate(ctx, ev.RouteID)
}
