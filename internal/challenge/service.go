package challenge

import (
	"context"
	"errors"
	"fmt"

	"backend-trailhunt/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrChallengeNotFound = errors.New("challenge not found")

type Service struct {
	db       db.TxQuerier
	onChange func(ctx context.Context, routeID string)
}

func NewService(db db.TxQuerier) *Service {
	return &Service{db: db}
}

// OnChange registers fn to run after a challenge is deleted.
func (s *Service) OnChange(fn func(ctx context.Context, routeID string)) {
	s.onChange = fn
}

// Delete removes a challenge together with its completions.
func (s *Service) Delete(ctx context.Context, id string) error {
	var routeID string
	err := s.db.QueryRow(ctx, `DELETE FROM challenges WHERE id=$1 RETURNING route_id`, id).Scan(&routeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrChallengeNotFound
	}
	if err != nil {
		return err
	}
	if s.onChange != nil {
		s.onChange(ctx, routeID)
	}
	return nil
}

const challengeColumns = `id, route_id, title, description, points, category, sort_order, created_at`

func scanChallenge(row pgx.Row) (Challenge, error) {
	var ch Challenge
	err := row.Scan(&ch.ID, &ch.RouteID, &ch.Title, &ch.Description, &ch.Points, &ch.Category, &ch.SortOrder, &ch.CreatedAt)
	return ch, err
}

func (s *Service) Get(ctx context.Context, id string) (Challenge, error) {
	ch, err := scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, ErrChallengeNotFound
	}
	return ch, err
}

func (s *Service) ListByRoute(ctx context.Context, routeID string) ([]Challenge, error) {
	return s.list(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE route_id=$1 ORDER BY sort_order, title`, routeID)
}

func (s *Service) ListActive(ctx context.Context) ([]Challenge, error) {
	return s.list(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE route_id = (SELECT id FROM routes WHERE is_active)
		ORDER BY sort_order, title
	`)
}

func (s *Service) list(ctx context.Context, sql string, args ...any) ([]Challenge, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Challenge{}
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ReplaceForRoute swaps the route's challenge set in one transaction.
func (s *Service) ReplaceForRoute(ctx context.Context, routeID string, chs []Challenge) (int, error) {
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM challenges WHERE route_id=$1`, routeID); err != nil {
			return fmt.Errorf("clear challenges: %w", err)
		}
		for i := range chs {
			ch := &chs[i]
			ch.ID = uuid.NewString()
			ch.RouteID = routeID
			_, err := tx.Exec(ctx, `
				INSERT INTO challenges (id, route_id, title, description, points, category, sort_order)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, ch.ID, ch.RouteID, ch.Title, ch.Description, ch.Points, ch.Category, ch.SortOrder)
			if err != nil {
				return fmt.Errorf("insert challenge %q: %w", ch.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(chs), nil
}
