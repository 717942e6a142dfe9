package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MatchRepository provides PostgreSQL-backed face match storage. The photo
// match counter moves inside the same transaction as the row change, using
// a relative UPDATE rather than a read-then-write round trip, so concurrent
// writers for one photo cannot lose increments.
type MatchRepository struct {
	pool *Pool
}

// NewMatchRepository creates a new PostgreSQL match repository.
func NewMatchRepository(pool *Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

const matchColumns = "id, photo_id, person_id, confidence, bbox, approved, created_at, updated_at"

// GetMatch retrieves a match by ID.
func (r *MatchRepository) GetMatch(ctx context.Context, id string) (*database.StoredMatch, error) {
	query := "SELECT " + matchColumns + " FROM face_matches WHERE id = $1"

	match, err := scanMatch(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

// ListMatches returns all matches, newest first.
func (r *MatchRepository) ListMatches(ctx context.Context) ([]database.StoredMatch, error) {
	query := "SELECT " + matchColumns + " FROM face_matches ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListMatchesByPhotoIDs returns matches for the given photos, newest first.
func (r *MatchRepository) ListMatchesByPhotoIDs(ctx context.Context, photoIDs []string) ([]database.StoredMatch, error) {
	if len(photoIDs) == 0 {
		return nil, nil
	}

	query := "SELECT " + matchColumns + ` FROM face_matches
		WHERE photo_id = ANY($1)
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, pq.Array(photoIDs))
	if err != nil {
		return nil, fmt.Errorf("query matches by photos: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListMatchesByPerson returns matches for one person, newest first.
func (r *MatchRepository) ListMatchesByPerson(ctx context.Context, personID string) ([]database.StoredMatch, error) {
	query := "SELECT " + matchColumns + ` FROM face_matches
		WHERE person_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query matches by person: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// CountMatchesByPhoto returns the number of match rows for a photo.
func (r *MatchRepository) CountMatchesByPhoto(ctx context.Context, photoID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_matches WHERE photo_id = $1", photoID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return count, nil
}

// UpsertMatch records a match keyed on (photo_id, person_id). A new pair
// inserts a row and increments the photo counter; an existing pair keeps
// whichever record has the higher confidence and leaves the counter alone.
// The xmax = 0 check distinguishes a fresh insert from a conflict update.
func (r *MatchRepository) UpsertMatch(ctx context.Context, match database.StoredMatch) (*database.StoredMatch, bool, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := match.ID
	if id == "" {
		id = uuid.NewString()
	}
	bbox := pq.Array(bboxToArray(match.BBox))

	query := `
		INSERT INTO face_matches (id, photo_id, person_id, confidence, bbox, approved)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (photo_id, person_id) DO UPDATE SET
			confidence = GREATEST(face_matches.confidence, EXCLUDED.confidence),
			bbox = CASE WHEN EXCLUDED.confidence > face_matches.confidence
			            THEN EXCLUDED.bbox ELSE face_matches.bbox END,
			updated_at = NOW()
		RETURNING ` + matchColumns + `, (xmax = 0) AS inserted
	`

	var inserted bool
	var stored database.StoredMatch
	var bboxOut pq.Float64Array
	err = tx.QueryRowContext(ctx, query, id, match.PhotoID, match.PersonID, match.Confidence, bbox, match.Approved).Scan(
		&stored.ID, &stored.PhotoID, &stored.PersonID, &stored.Confidence, &bboxOut,
		&stored.Approved, &stored.CreatedAt, &stored.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert match: %w", err)
	}
	stored.BBox = bboxFromArray(bboxOut)

	if inserted {
		res, err := tx.ExecContext(ctx, "UPDATE photos SET match_count = match_count + 1 WHERE id = $1", match.PhotoID)
		if err != nil {
			return nil, false, fmt.Errorf("increment match count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, false, fmt.Errorf("increment match count: photo %s: %w", match.PhotoID, database.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return &stored, inserted, nil
}

// SetApproval sets the approval flag. Setting the current value again is a
// no-op apart from the updated_at bump.
func (r *MatchRepository) SetApproval(ctx context.Context, id string, approved bool) (*database.StoredMatch, error) {
	query := `
		UPDATE face_matches SET approved = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + matchColumns

	match, err := scanMatch(r.pool.QueryRow(ctx, query, approved, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

// DeleteMatch removes a match and decrements the owning photo's counter in
// the same transaction.
func (r *MatchRepository) DeleteMatch(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var photoID string
	err = tx.QueryRowContext(ctx, "DELETE FROM face_matches WHERE id = $1 RETURNING photo_id", id).Scan(&photoID)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	_, err = tx.ExecContext(ctx, "UPDATE photos SET match_count = GREATEST(match_count - 1, 0) WHERE id = $1", photoID)
	if err != nil {
		return fmt.Errorf("decrement match count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// scanMatch scans a single row into a StoredMatch.
func scanMatch(scanner interface{ Scan(...any) error }) (*database.StoredMatch, error) {
	var match database.StoredMatch
	var bbox pq.Float64Array

	err := scanner.Scan(
		&match.ID,
		&match.PhotoID,
		&match.PersonID,
		&match.Confidence,
		&bbox,
		&match.Approved,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan match: %w", err)
	}

	match.BBox = bboxFromArray(bbox)
	return &match, nil
}

func scanMatches(rows *sql.Rows) ([]database.StoredMatch, error) {
	var matches []database.StoredMatch
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// Verify interface compliance.
var _ database.MatchReader = (*MatchRepository)(nil)
var _ database.MatchWriter = (*MatchRepository)(nil)
