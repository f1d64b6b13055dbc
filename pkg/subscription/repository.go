package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/calmirror/calmirror/pkg/filter"
	log "github.com/sirupsen/logrus"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type Repository interface {
	Store(ctx context.Context, profileID int, sub Subscription) (int, error)
	GetByID(ctx context.Context, profileID int, id int) (Subscription, error)
	ListByProfile(ctx context.Context, profileID int) ([]Subscription, error)
	// ListEnabled returns all enabled subscriptions across profiles, for the
	// batch runner.
	ListEnabled(ctx context.Context) ([]Subscription, error)
	Update(ctx context.Context, profileID int, sub Subscription) (bool, error)
	Delete(ctx context.Context, profileID int, id int) (bool, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Store(ctx context.Context, profileID int, sub Subscription) (int, error) {
	query := `INSERT INTO subscription (
					profile_id,
					source_calendar_id,
					target_calendar_id,
					filter_kind,
					filter_pattern,
					enabled,
					created_at,
					updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		profileID,
		sub.SourceCalendarID,
		sub.TargetCalendarID,
		string(sub.Filter.Kind),
		sub.Filter.Pattern,
		sub.Enabled,
		sub.CreatedAt.Unix(),
		sub.UpdatedAt.Unix(),
	)
	if err != nil {
		err := fmt.Errorf("could not store subscription: %v", err)
		log.Error(err)
		return 0, err
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("could not retrieve last insert id: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(lastInsertID), nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, profileID int, id int) (Subscription, error) {
	query := `SELECT id, profile_id, source_calendar_id, target_calendar_id, filter_kind, filter_pattern, enabled, created_at, updated_at
				FROM subscription WHERE id = ? AND profile_id = ?`
	row := r.db.QueryRowContext(ctx, query, id, profileID)

	sub, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not query subscription: %w", err)
		log.Error(err)
		return Subscription{}, err
	}
	return sub, nil
}

func (r *RepositoryImpl) ListByProfile(ctx context.Context, profileID int) ([]Subscription, error) {
	query := `SELECT id, profile_id, source_calendar_id, target_calendar_id, filter_kind, filter_pattern, enabled, created_at, updated_at
				FROM subscription WHERE profile_id = ? ORDER BY id`
	return r.list(ctx, query, profileID)
}

func (r *RepositoryImpl) ListEnabled(ctx context.Context) ([]Subscription, error) {
	query := `SELECT id, profile_id, source_calendar_id, target_calendar_id, filter_kind, filter_pattern, enabled, created_at, updated_at
				FROM subscription WHERE enabled = 1 ORDER BY id`
	return r.list(ctx, query)
}

func (r *RepositoryImpl) list(ctx context.Context, query string, args ...any) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query subscriptions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			err := fmt.Errorf("could not scan subscription: %w", err)
			log.Error(err)
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return subs, nil
}

func scanSubscription(scan func(dest ...any) error) (Subscription, error) {
	var sub Subscription
	var kind string
	var createdAt, updatedAt int64
	if err := scan(
		&sub.ID,
		&sub.ProfileID,
		&sub.SourceCalendarID,
		&sub.TargetCalendarID,
		&kind,
		&sub.Filter.Pattern,
		&sub.Enabled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Subscription{}, err
	}
	sub.Filter.Kind = filter.RuleKind(kind)
	sub.CreatedAt = time.Unix(createdAt, 0)
	sub.UpdatedAt = time.Unix(updatedAt, 0)
	return sub, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, profileID int, sub Subscription) (bool, error) {
	query := `UPDATE subscription SET
					source_calendar_id = ?,
					target_calendar_id = ?,
					filter_kind = ?,
					filter_pattern = ?,
					enabled = ?,
					updated_at = ?
				WHERE id = ? AND profile_id = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		sub.SourceCalendarID,
		sub.TargetCalendarID,
		string(sub.Filter.Kind),
		sub.Filter.Pattern,
		sub.Enabled,
		sub.UpdatedAt.Unix(),
		sub.ID,
		profileID,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, profileID int, id int) (bool, error) {
	query := "DELETE FROM subscription WHERE id = ? AND profile_id = ?"
	result, err := r.db.ExecContext(ctx, query, id, profileID)
	if err != nil {
		err := fmt.Errorf("could not delete subscription: %v", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}
