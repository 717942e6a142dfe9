package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/facematch"
)

// PersonRepository provides PostgreSQL-backed person storage.
type PersonRepository struct {
	pool *Pool
}

// NewPersonRepository creates a new PostgreSQL person repository.
func NewPersonRepository(pool *Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// GetPerson retrieves a person by ID.
func (r *PersonRepository) GetPerson(ctx context.Context, id string) (*database.Person, error) {
	query := `
		SELECT id, user_id, display_name, team_name, created_at
		FROM persons
		WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	return scanPerson(row)
}

// GetPersonByUser retrieves the person profile for a user identity.
func (r *PersonRepository) GetPersonByUser(ctx context.Context, userID string) (*database.Person, error) {
	query := `
		SELECT id, user_id, display_name, team_name, created_at
		FROM persons
		WHERE user_id = $1
	`

	row := r.pool.QueryRow(ctx, query, userID)
	return scanPerson(row)
}

// GetPersonByName retrieves a person by display name. Names are normalized
// before comparison (lowercase, no diacritics, dashes to spaces) so slugs
// like "jan-novak" match "Jan Novák".
func (r *PersonRepository) GetPersonByName(ctx context.Context, name string) (*database.Person, error) {
	normalizedInput := facematch.NormalizePersonName(name)

	// LOWER + unaccent + REPLACE matches the Go-side normalization.
	query := `
		SELECT id, user_id, display_name, team_name, created_at
		FROM persons
		WHERE LOWER(REPLACE(unaccent(display_name), '-', ' ')) = $1
	`

	row := r.pool.QueryRow(ctx, query, normalizedInput)
	return scanPerson(row)
}

// CreatePerson inserts a person record.
func (r *PersonRepository) CreatePerson(ctx context.Context, person database.Person) error {
	query := `
		INSERT INTO persons (id, user_id, display_name, team_name)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, query, person.ID, person.UserID, person.DisplayName, person.TeamName); err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func scanPerson(row *sql.Row) (*database.Person, error) {
	var p database.Person
	var userID, teamName sql.NullString

	err := row.Scan(&p.ID, &userID, &p.DisplayName, &teamName, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}

	if userID.Valid {
		p.UserID = userID.String
	}
	if teamName.Valid {
		p.TeamName = teamName.String
	}
	return &p, nil
}

// Verify interface compliance.
var _ database.PersonReader = (*PersonRepository)(nil)
