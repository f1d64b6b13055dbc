package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Mapping is the durable link between a mirrored source occurrence and its
// copy in the target calendar. A row exists iff the engine believes a target
// event exists for that source id.
type Mapping struct {
	SubscriptionID int
	SourceEventID  string
	TargetEventID  string
	Etag           string
	Fingerprint    string
}

type MappingRepo interface {
	// Get returns the mapping for the source event, or nil when absent.
	Get(ctx context.Context, subscriptionID int, sourceEventID string) (*Mapping, error)
	// Upsert inserts or replaces the mapping row. Replaying the same write
	// after a crash is a no-op on content.
	Upsert(ctx context.Context, mapping Mapping) error
	Delete(ctx context.Context, subscriptionID int, sourceEventID string) error
	ListBySubscription(ctx context.Context, subscriptionID int) ([]Mapping, error)
	// DeleteBySubscription wipes all mappings, forcing full re-creation on
	// the next run. Used by forced resynchronization after a filter edit.
	DeleteBySubscription(ctx context.Context, subscriptionID int) error
}

type MappingRepoImpl struct {
	db *sql.DB
}

func NewMappingRepo(db *sql.DB) *MappingRepoImpl {
	return &MappingRepoImpl{db: db}
}

func (r *MappingRepoImpl) Get(ctx context.Context, subscriptionID int, sourceEventID string) (*Mapping, error) {
	query := `SELECT target_event_id, last_etag, last_fingerprint
				FROM event_mapping WHERE subscription_id = ? AND source_event_id = ?`
	row := r.db.QueryRowContext(ctx, query, subscriptionID, sourceEventID)

	mapping := Mapping{SubscriptionID: subscriptionID, SourceEventID: sourceEventID}
	err := row.Scan(&mapping.TargetEventID, &mapping.Etag, &mapping.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		err := fmt.Errorf("could not query event mapping: %w", err)
		log.Error(err)
		return nil, err
	}
	return &mapping, nil
}

func (r *MappingRepoImpl) Upsert(ctx context.Context, mapping Mapping) error {
	query := `INSERT INTO event_mapping (subscription_id, source_event_id, target_event_id, last_etag, last_fingerprint)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (subscription_id, source_event_id) DO UPDATE SET
					target_event_id = excluded.target_event_id,
					last_etag = excluded.last_etag,
					last_fingerprint = excluded.last_fingerprint`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		mapping.SubscriptionID,
		mapping.SourceEventID,
		mapping.TargetEventID,
		mapping.Etag,
		mapping.Fingerprint,
	)
	if err != nil {
		err := fmt.Errorf("could not upsert event mapping: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *MappingRepoImpl) Delete(ctx context.Context, subscriptionID int, sourceEventID string) error {
	query := "DELETE FROM event_mapping WHERE subscription_id = ? AND source_event_id = ?"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, subscriptionID, sourceEventID); err != nil {
		err := fmt.Errorf("could not delete event mapping: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *MappingRepoImpl) ListBySubscription(ctx context.Context, subscriptionID int) ([]Mapping, error) {
	query := `SELECT source_event_id, target_event_id, last_etag, last_fingerprint
				FROM event_mapping WHERE subscription_id = ? ORDER BY source_event_id`
	rows, err := r.db.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		err := fmt.Errorf("could not query event mappings: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		mapping := Mapping{SubscriptionID: subscriptionID}
		if err := rows.Scan(&mapping.SourceEventID, &mapping.TargetEventID, &mapping.Etag, &mapping.Fingerprint); err != nil {
			err := fmt.Errorf("could not scan event mapping: %w", err)
			log.Error(err)
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return mappings, nil
}

func (r *MappingRepoImpl) DeleteBySubscription(ctx context.Context, subscriptionID int) error {
	query := "DELETE FROM event_mapping WHERE subscription_id = ?"
	if _, err := r.db.ExecContext(ctx, query, subscriptionID); err != nil {
		err := fmt.Errorf("could not delete event mappings: %v", err)
		log.Error(err)
		return err
	}
	return nil
}
