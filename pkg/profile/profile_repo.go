package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repository interface {
	Store(ctx context.Context, p Profile) (int, error)
	GetByUid(ctx context.Context, uid string) (Profile, error)
	GetAll(ctx context.Context) ([]Profile, error)
	Delete(ctx context.Context, id int) (bool, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Store(ctx context.Context, p Profile) (int, error) {
	query := "INSERT INTO profile (uid, display_name, timezone) VALUES (?, ?, ?)"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, p.Uid, p.DisplayName, p.Timezone)
	if err != nil {
		err := fmt.Errorf("could not store profile: %v", err)
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

func (r *RepositoryImpl) GetByUid(ctx context.Context, uid string) (Profile, error) {
	query := "SELECT id, uid, display_name, timezone FROM profile WHERE uid = ?"
	row := r.db.QueryRowContext(ctx, query, uid)

	var p Profile
	err := row.Scan(&p.Id, &p.Uid, &p.DisplayName, &p.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not query profile: %w", err)
		log.Error(err)
		return Profile{}, err
	}
	return p, nil
}

func (r *RepositoryImpl) GetAll(ctx context.Context) ([]Profile, error) {
	query := "SELECT id, uid, display_name, timezone FROM profile ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query profiles: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.Id, &p.Uid, &p.DisplayName, &p.Timezone); err != nil {
			err := fmt.Errorf("could not scan profile: %w", err)
			log.Error(err)
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return profiles, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) (bool, error) {
	query := "DELETE FROM profile WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		err := fmt.Errorf("could not delete profile: %v", err)
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
