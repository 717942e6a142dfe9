package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository provides PostgreSQL-backed enrollment storage.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetEnrollment retrieves the enrollment for a person, including the
// contributing samples ordered by rank.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, personID string) (*database.EnrollmentRecord, error) {
	var record database.EnrollmentRecord
	var vec pgvector.Vector

	err := r.pool.QueryRow(
		ctx, "SELECT person_id, descriptor, dim, updated_at FROM enrollments WHERE person_id = $1", personID,
	).Scan(&record.PersonID, &vec, &record.Dim, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan enrollment: %w", err)
	}
	record.Descriptor = vec.Slice()

	samples, err := r.getSamples(ctx, personID)
	if err != nil {
		return nil, err
	}
	record.Samples = samples

	return &record, nil
}

func (r *EnrollmentRepository) getSamples(ctx context.Context, personID string) ([]database.EnrollmentSample, error) {
	rows, err := r.pool.Query(
		ctx, "SELECT descriptor, bbox FROM enrollment_samples WHERE person_id = $1 ORDER BY sample_index", personID,
	)
	if err != nil {
		return nil, fmt.Errorf("query enrollment samples: %w", err)
	}
	defer rows.Close()

	var samples []database.EnrollmentSample
	for rows.Next() {
		var vec pgvector.Vector
		var bbox pq.Float64Array
		if err := rows.Scan(&vec, &bbox); err != nil {
			return nil, fmt.Errorf("scan enrollment sample: %w", err)
		}
		samples = append(samples, database.EnrollmentSample{
			Descriptor: vec.Slice(),
			BBox:       bboxFromArray(bbox),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollment samples: %w", err)
	}

	return samples, nil
}

// ListGallery returns one entry per enrolled person. Persons without an
// enrollment never appear in the result.
func (r *EnrollmentRepository) ListGallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	rows, err := r.pool.Query(ctx, "SELECT person_id, descriptor FROM enrollments ORDER BY person_id")
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	var entries []facematch.GalleryEntry
	for rows.Next() {
		var personID string
		var vec pgvector.Vector
		if err := rows.Scan(&personID, &vec); err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}
		entries = append(entries, facematch.GalleryEntry{
			PersonID:   personID,
			Descriptor: vec.Slice(),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery: %w", err)
	}

	return entries, nil
}

// CountEnrollments returns the number of enrolled persons.
func (r *EnrollmentRepository) CountEnrollments(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrollments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// SaveEnrollment replaces the person's enrollment wholesale. The previous
// descriptor and samples are discarded in the same transaction that writes
// the new ones, so readers never observe a mix of old and new samples.
func (r *EnrollmentRepository) SaveEnrollment(ctx context.Context, record database.EnrollmentRecord) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	vec := pgvector.NewVector(record.Descriptor)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO enrollments (person_id, descriptor, dim, updated_at)
		VALUES ($1, $2::vector, $3, NOW())
		ON CONFLICT (person_id) DO UPDATE SET
			descriptor = EXCLUDED.descriptor,
			dim = EXCLUDED.dim,
			updated_at = NOW()
	`, record.PersonID, vec, record.Dim)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrollment_samples WHERE person_id = $1", record.PersonID); err != nil {
		return fmt.Errorf("delete old samples: %w", err)
	}

	for i, sample := range record.Samples {
		sampleVec := pgvector.NewVector(sample.Descriptor)
		bbox := pq.Array(bboxToArray(sample.BBox))
		_, err := tx.ExecContext(ctx, `
			INSERT INTO enrollment_samples (person_id, sample_index, descriptor, bbox)
			VALUES ($1, $2, $3::vector, $4)
		`, record.PersonID, i, sampleVec, bbox)
		if err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteEnrollment removes a person's enrollment and its samples.
func (r *EnrollmentRepository) DeleteEnrollment(ctx context.Context, personID string) error {
	// Samples cascade from the enrollments row.
	if _, err := r.pool.Exec(ctx, "DELETE FROM enrollments WHERE person_id = $1", personID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// bboxToArray flattens a bounding box for DOUBLE PRECISION[] storage.
func bboxToArray(b facematch.BBox) []float64 {
	return []float64{b.X, b.Y, b.Width, b.Height}
}

// bboxFromArray restores a bounding box from its stored array form.
func bboxFromArray(a pq.Float64Array) facematch.BBox {
	if len(a) != 4 {
		return facematch.BBox{}
	}
	return facematch.BBox{X: a[0], Y: a[1], Width: a[2], Height: a[3]}
}

// Verify interface compliance.
var _ database.EnrollmentReader = (*EnrollmentRepository)(nil)
var _ database.EnrollmentWriter = (*EnrollmentRepository)(nil)
