package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewpix/crewpix/internal/config"
	"github.com/crewpix/crewpix/internal/constants"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/database/postgres"
	"github.com/crewpix/crewpix/internal/matching"
	"github.com/crewpix/crewpix/internal/recognizer"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <person> <image>...",
	Short: "Enroll a person from face sample images",
	Long: `Enroll a person by extracting a face descriptor from each sample image
and aggregating them into one representative descriptor. The largest face in
each image is used. Re-running replaces the previous enrollment entirely.

The person may be given as an ID or a display name. Names are matched
ignoring case and diacritics, so "jan-novak" finds "Jan Novák".

At least three usable samples are required.

Examples:
  crewpix enroll 7f3b... selfie1.jpg selfie2.jpg selfie3.jpg
  crewpix enroll "Jan Novák" selfie1.jpg selfie2.jpg selfie3.jpg`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	personRef := args[0]
	imagePaths := args[1:]

	ctx := context.Background()
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL...")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	persons := postgres.NewPersonRepository(pool)
	enrollments := postgres.NewEnrollmentRepository(pool)

	person, err := matching.ResolvePerson(ctx, persons, personRef)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no person matches %q", personRef)
		}
		return fmt.Errorf("resolving person %q: %w", personRef, err)
	}

	extractor := recognizer.NewClient(
		cfg.Recognizer.URL,
		cfg.Recognizer.Dim,
		time.Duration(cfg.Recognizer.TimeoutSeconds)*time.Second,
	)
	if err := extractor.Ready(ctx); err != nil {
		return fmt.Errorf("recognizer backend: %w", err)
	}

	enroller := matching.NewEnroller(extractor, enrollments, persons,
		cfg.Matching.MinSamples, cfg.Matching.MaxSamples)

	images := make([][]byte, 0, len(imagePaths))
	for _, path := range imagePaths {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied paths
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if resized, err := recognizer.ResizeImage(data, constants.MaxImageSize); err == nil {
			data = resized
		}
		images = append(images, data)
	}

	record, err := enroller.EnrollImages(ctx, person.ID, images)
	if err != nil {
		return fmt.Errorf("enrolling %s: %w", person.DisplayName, err)
	}

	fmt.Printf("Enrolled %s with %d samples (descriptor dim %d)\n",
		person.DisplayName, len(record.Samples), record.Dim)
	return nil
}
