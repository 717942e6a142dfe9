package matching

import (
	"context"
	"errors"

	"github.com/crewpix/crewpix/internal/database"
)

// ResolvePerson finds the enrollment target for an operator-supplied
// reference, which may be a person ID or a display name. Name lookup is
// normalized on both sides so a slug like "jan-novak" resolves "Jan Novák".
func ResolvePerson(ctx context.Context, persons database.PersonReader, ref string) (*database.Person, error) {
	person, err := persons.GetPerson(ctx, ref)
	if err == nil {
		return person, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	return persons.GetPersonByName(ctx, ref)
}
