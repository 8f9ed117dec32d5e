package completion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"

	"backend-trailhunt/internal/db"
	"backend-trailhunt/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Listener is invoked after a ledger row is committed.
type Listener func(ctx context.Context, ev Event)

type Option func(*Engine)

func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithObserver registers fn to see every result, failures included.
func WithObserver(fn func(Kind, Result)) Option {
	return func(e *Engine) { e.observe = fn }
}

// PhotoRemover deletes an uploaded challenge photo.
type PhotoRemover interface {
	DeletePhoto(ctx context.Context, url string) error
}

func WithPhotoRemover(p PhotoRemover) Option {
	return func(e *Engine) { e.photos = p }
}

// WithRemovalListener registers fn to run with the route of every ledger
// row an admin removes.
func WithRemovalListener(fn func(ctx context.Context, routeID string)) Option {
	return func(e *Engine) { e.removed = append(e.removed, fn) }
}

var ErrCompletionNotFound = errors.New("completion not found")

type Engine struct {
	db             db.Querier
	defaultRadiusM float64
	listeners      []Listener
	observe        func(Kind, Result)
	photos         PhotoRemover
	removed        []func(ctx context.Context, routeID string)
}

func NewEngine(q db.Querier, defaultRadiusM float64, opts ...Option) *Engine {
	if defaultRadiusM <= 0 {
		defaultRadiusM = geo.DefaultCompletionRadiusM
	}
	e := &Engine{db: q, defaultRadiusM: defaultRadiusM}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func failure(code Code, msg string) Result {
	return Result{Code: code, Error: msg}
}

// CompleteWaypoint records a waypoint visit when (lat, lng) lies within the
// waypoint's completion radius. Each (user, waypoint) pair scores once.
func (e *Engine) CompleteWaypoint(ctx context.Context, userID, waypointID string, lat, lng float64) Result {
	res := e.completeWaypoint(ctx, userID, waypointID, lat, lng)
	e.report(KindWaypoint, res)
	return res
}

func (e *Engine) completeWaypoint(ctx context.Context, userID, waypointID string, lat, lng float64) Result {
	if userID == "" {
		return failure(CodeNotAuthenticated, "not authenticated")
	}
	if !geo.ValidCoordinate(lat, lng) {
		return failure(CodeValidationFailure, "invalid coordinates")
	}

	var (
		routeID, name  string
		points         int
		wpLat, wpLng   float64
		requiredRadius float64
	)
	err := e.db.QueryRow(ctx, `
		SELECT w.route_id, w.name, w.points, w.latitude, w.longitude, COALESCE(w.completion_radius_m, $2)
		FROM waypoints w
		JOIN routes r ON r.id = w.route_id
		WHERE w.id=$1 AND r.is_active
	`, waypointID, e.defaultRadiusM).Scan(&routeID, &name, &points, &wpLat, &wpLng, &requiredRadius)
	if errors.Is(err, pgx.ErrNoRows) {
		return failure(CodeTargetNotFound, "waypoint not found")
	}
	if err != nil {
		log.Printf("completion: lookup waypoint %s: %v", waypointID, err)
		return failure(CodeTransientFailure, "temporarily unavailable, try again")
	}

	if !geo.WithinRange(lat, lng, wpLat, wpLng, requiredRadius) {
		done, err := e.exists(ctx, `SELECT EXISTS (SELECT 1 FROM waypoint_completions WHERE user_id=$1 AND waypoint_id=$2)`, userID, waypointID)
		if err != nil {
			log.Printf("completion: check waypoint %s: %v", waypointID, err)
			return failure(CodeTransientFailure, "temporarily unavailable, try again")
		}
		if done {
			return failure(CodeAlreadyCompleted, "waypoint already completed")
		}
		dist := math.Round(geo.DistanceMeters(lat, lng, wpLat, wpLng)*10) / 10
		required := requiredRadius
		res := failure(CodeTooFar, fmt.Sprintf("too far from waypoint: %s away, must be within %s",
			geo.FormatDistance(dist), geo.FormatDistance(required)))
		res.Distance = &dist
		res.Required = &required
		return res
	}

	ev := Event{
		ID:       uuid.NewString(),
		Kind:     KindWaypoint,
		UserID:   userID,
		RouteID:  routeID,
		TargetID: waypointID,
		Title:    name,
		Points:   points,
	}
	err = e.db.QueryRow(ctx, `
		INSERT INTO waypoint_completions (id, user_id, waypoint_id, route_id, points_awarded, completion_lat, completion_lng)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, waypoint_id) DO NOTHING
		RETURNING completed_at
	`, ev.ID, userID, waypointID, routeID, points, lat, lng).Scan(&ev.CompletedAt)
	if res, failed := insertFailure(err, "waypoint"); failed {
		return res
	}

	e.emit(ctx, ev)
	return Result{Success: true, PointsEarned: points, WaypointName: name}
}

// CompleteChallenge records a photo challenge. No location check applies.
func (e *Engine) CompleteChallenge(ctx context.Context, userID, challengeID, photoURL string) Result {
	res := e.completeChallenge(ctx, userID, challengeID, photoURL)
	e.report(KindChallenge, res)
	return res
}

func (e *Engine) completeChallenge(ctx context.Context, userID, challengeID, photoURL string) Result {
	if userID == "" {
		return failure(CodeNotAuthenticated, "not authenticated")
	}
	if !validPhotoURL(photoURL) {
		return failure(CodeValidationFailure, "photo_url must be an absolute http(s) url")
	}

	var (
		routeID, title string
		points         int
	)
	err := e.db.QueryRow(ctx, `
		SELECT c.route_id, c.title, c.points
		FROM challenges c
		JOIN routes r ON r.id = c.route_id
		WHERE c.id=$1 AND r.is_active
	`, challengeID).Scan(&routeID, &title, &points)
	if errors.Is(err, pgx.ErrNoRows) {
		return failure(CodeTargetNotFound, "challenge not found")
	}
	if err != nil {
		log.Printf("completion: lookup challenge %s: %v", challengeID, err)
		return failure(CodeTransientFailure, "temporarily unavailable, try again")
	}

	ev := Event{
		ID:       uuid.NewString(),
		Kind:     KindChallenge,
		UserID:   userID,
		RouteID:  routeID,
		TargetID: challengeID,
		Title:    title,
		Points:   points,
		PhotoURL: photoURL,
	}
	err = e.db.QueryRow(ctx, `
		INSERT INTO challenge_completions (id, user_id, challenge_id, route_id, points_awarded, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, challenge_id) DO NOTHING
		RETURNING completed_at
	`, ev.ID, userID, challengeID, routeID, points, photoURL).Scan(&ev.CompletedAt)
	if res, failed := insertFailure(err, "challenge"); failed {
		return res
	}

	e.emit(ctx, ev)
	return Result{Success: true, PointsEarned: points, ChallengeTitle: title}
}

// insertFailure maps the outcome of an ON CONFLICT DO NOTHING insert.
func insertFailure(err error, target string) (Result, bool) {
	if err == nil {
		return Result{}, false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return failure(CodeAlreadyCompleted, target+" already completed"), true
	}
	if db.IsConstraint(err, db.CodeForeignKeyViolation) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "user_id") {
			return failure(CodeNotAuthenticated, "unknown user"), true
		}
		return failure(CodeTargetNotFound, target+" not found"), true
	}
	log.Printf("completion: insert %s completion: %v", target, err)
	return failure(CodeTransientFailure, "temporarily unavailable, try again"), true
}

func validPhotoURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (e *Engine) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var ok bool
	err := e.db.QueryRow(ctx, sql, args...).Scan(&ok)
	return ok, err
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	// listeners outlive the request that triggered them
	ctx = context.WithoutCancel(ctx)
	for _, l := range e.listeners {
		l(ctx, ev)
	}
}

func (e *Engine) report(kind Kind, res Result) {
	if e.observe != nil {
		e.observe(kind, res)
	}
}

// CompletedWaypointIDs lists the waypoints userID has completed on routeID.
func (e *Engine) CompletedWaypointIDs(ctx context.Context, userID, routeID string) ([]string, error) {
	return e.ids(ctx, `SELECT waypoint_id FROM waypoint_completions WHERE user_id=$1 AND route_id=$2 ORDER BY completed_at`, userID, routeID)
}

func (e *Engine) CompletedChallengeIDs(ctx context.Context, userID, routeID string) ([]string, error) {
	return e.ids(ctx, `SELECT challenge_id FROM challenge_completions WHERE user_id=$1 AND route_id=$2 ORDER BY completed_at`, userID, routeID)
}

func (e *Engine) ids(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Gallery returns the route's challenge photos, newest first.
func (e *Engine) Gallery(ctx context.Context, routeID string, limit int) ([]GalleryItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := e.db.Query(ctx, `
		SELECT cc.id, cc.user_id, u.username, cc.challenge_id, c.title, cc.photo_url, cc.points_awarded, cc.completed_at
		FROM challenge_completions cc
		JOIN users u ON u.id = cc.user_id
		JOIN challenges c ON c.id = cc.challenge_id
		WHERE cc.route_id=$1
		ORDER BY cc.completed_at DESC
		LIMIT $2
	`, routeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GalleryItem{}
	for rows.Next() {
		var g GalleryItem
		if err := rows.Scan(&g.ID, &g.UserID, &g.Username, &g.ChallengeID, &g.ChallengeTitle, &g.PhotoURL, &g.Points, &g.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RemoveChallengeCompletion deletes a gallery entry and the photo behind it.
// The row goes first; a photo that fails to delete is only logged.
func (e *Engine) RemoveChallengeCompletion(ctx context.Context, id string) error {
	var routeID, photoURL string
	err := e.db.QueryRow(ctx, `
		DELETE FROM challenge_completions WHERE id=$1
		RETURNING route_id, photo_url
	`, id).Scan(&routeID, &photoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCompletionNotFound
	}
	if err != nil {
		return err
	}
	for _, fn := range e.removed {
		fn(ctx, routeID)
	}
	if e.photos != nil {
		if err := e.photos.DeletePhoto(ctx, photoURL); err != nil {
			log.Printf("delete photo of completion %s: %v", id, err)
		}
	}
	return nil
}
