package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// State is the per-subscription sync cursor and last run outcome. An empty
// SyncToken forces the next delta pass to request the full change feed.
type State struct {
	SubscriptionID int
	SyncToken      string
	LastRunAt      time.Time
	LastStatus     string
}

type StateRepo interface {
	// Get returns the subscription state, or a zero State when none is stored.
	Get(ctx context.Context, subscriptionID int) (State, error)
	SetSyncToken(ctx context.Context, subscriptionID int, token string) error
	// ClearSyncToken nulls the cursor, forcing resynchronization.
	ClearSyncToken(ctx context.Context, subscriptionID int) error
	RecordRun(ctx context.Context, subscriptionID int, status string, at time.Time) error
}

type StateRepoImpl struct {
	db *sql.DB
}

func NewStateRepo(db *sql.DB) *StateRepoImpl {
	return &StateRepoImpl{db: db}
}

func (r *StateRepoImpl) Get(ctx context.Context, subscriptionID int) (State, error) {
	query := "SELECT sync_token, last_run_at, last_status FROM subscription_state WHERE subscription_id = ?"
	row := r.db.QueryRowContext(ctx, query, subscriptionID)

	state := State{SubscriptionID: subscriptionID}
	var syncToken, lastStatus sql.NullString
	var lastRunAt sql.NullInt64
	err := row.Scan(&syncToken, &lastRunAt, &lastStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		err := fmt.Errorf("could not query subscription state: %w", err)
		log.Error(err)
		return State{}, err
	}
	state.SyncToken = syncToken.String
	state.LastStatus = lastStatus.String
	if lastRunAt.Valid {
		state.LastRunAt = time.Unix(lastRunAt.Int64, 0)
	}
	return state, nil
}

func (r *StateRepoImpl) SetSyncToken(ctx context.Context, subscriptionID int, token string) error {
	query := `INSERT INTO subscription_state (subscription_id, sync_token) VALUES (?, ?)
				ON CONFLICT (subscription_id) DO UPDATE SET sync_token = excluded.sync_token`
	if _, err := r.db.ExecContext(ctx, query, subscriptionID, token); err != nil {
		err := fmt.Errorf("could not store sync token: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *StateRepoImpl) ClearSyncToken(ctx context.Context, subscriptionID int) error {
	query := "UPDATE subscription_state SET sync_token = NULL WHERE subscription_id = ?"
	if _, err := r.db.ExecContext(ctx, query, subscriptionID); err != nil {
		err := fmt.Errorf("could not clear sync token: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *StateRepoImpl) RecordRun(ctx context.Context, subscriptionID int, status string, at time.Time) error {
	query := `INSERT INTO subscription_state (subscription_id, last_run_at, last_status) VALUES (?, ?, ?)
				ON CONFLICT (subscription_id) DO UPDATE SET
					last_run_at = excluded.last_run_at,
					last_status = excluded.last_status`
	if _, err := r.db.ExecContext(ctx, query, subscriptionID, at.Unix(), status); err != nil {
		err := fmt.Errorf("could not record run status: %v", err)
		log.Error(err)
		return err
	}
	return nil
}
