package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewpix/crewpix/internal/database"
)

// PhotoRepository provides PostgreSQL-backed photo storage.
type PhotoRepository struct {
	pool *Pool
}

// NewPhotoRepository creates a new PostgreSQL photo repository.
func NewPhotoRepository(pool *Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

// GetPhoto retrieves a photo by ID.
func (r *PhotoRepository) GetPhoto(ctx context.Context, id string) (*database.Photo, error) {
	query := `
		SELECT id, photographer_id, title, match_count, created_at
		FROM photos
		WHERE id = $1
	`

	var p database.Photo
	var photographerID, title sql.NullString

	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &photographerID, &title, &p.MatchCount, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan photo: %w", err)
	}

	if photographerID.Valid {
		p.PhotographerID = photographerID.String
	}
	if title.Valid {
		p.Title = title.String
	}
	return &p, nil
}

// ListPhotoIDsByPhotographer returns the IDs of all photos owned by a photographer.
func (r *PhotoRepository) ListPhotoIDsByPhotographer(ctx context.Context, photographerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM photos WHERE photographer_id = $1 ORDER BY id", photographerID)
	if err != nil {
		return nil, fmt.Errorf("query photo IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan photo ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo IDs: %w", err)
	}

	return ids, nil
}

// CreatePhoto inserts a photo record with a zero match counter.
func (r *PhotoRepository) CreatePhoto(ctx context.Context, photo database.Photo) error {
	query := `
		INSERT INTO photos (id, photographer_id, title, match_count)
		VALUES ($1, $2, $3, 0)
	`

	if _, err := r.pool.Exec(ctx, query, photo.ID, photo.PhotographerID, photo.Title); err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ database.PhotoReader = (*PhotoRepository)(nil)
var _ database.PhotoWriter = (*PhotoRepository)(nil)
