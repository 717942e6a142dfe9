package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/config"
	"github.com/crewpix/crewpix/internal/constants"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/database/postgres"
	"github.com/crewpix/crewpix/internal/matching"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/registry"
)

var processCmd = &cobra.Command{
	Use:   "process <directory>",
	Short: "Match all photos in a directory against the enrolled gallery",
	Long: `Process a directory of event photos. Each image is registered for the
given photographer, run through face extraction, and matched against all
enrolled persons. Accepted matches are stored for later review.

The process can be stopped and restarted - every photo gets a fresh record,
and duplicate matches collapse onto the existing pair keeping the higher
confidence.

Examples:
  # Match every photo in ./event-photos (4 concurrent workers)
  crewpix process ./event-photos --photographer 7f3b...

  # Stricter threshold and more workers
  crewpix process ./event-photos --photographer 7f3b... --threshold 0.75 --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("photographer", "", "User ID of the photographer owning these photos")
	processCmd.Flags().Int("concurrency", 0, "Number of parallel workers (defaults to MATCHING_CONCURRENCY)")
	processCmd.Flags().Float64("threshold", 0, "Confidence threshold (defaults to MATCHING_THRESHOLD)")
	processCmd.Flags().Bool("fail-fast", false, "Treat any failed face as a failed run and exit non-zero")
	processCmd.Flags().Int("limit", 0, "Limit number of photos to process (0 = no limit)")

	_ = processCmd.MarkFlagRequired("photographer")
}

// listImageFiles returns paths of supported image files directly in dir.
func listImageFiles(dir string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
		if limit > 0 && len(paths) >= limit {
			break
		}
	}
	return paths, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	dir := args[0]
	photographer := mustGetString(cmd, "photographer")
	concurrency := mustGetInt(cmd, "concurrency")
	threshold := mustGetFloat64(cmd, "threshold")
	failFast := mustGetBool(cmd, "fail-fast")
	limit := mustGetInt(cmd, "limit")

	ctx := context.Background()
	cfg := config.Load()

	if concurrency <= 0 {
		concurrency = cfg.Matching.Concurrency
	}
	if threshold <= 0 {
		threshold = cfg.Matching.Threshold
	}

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
	photos := postgres.NewPhotoRepository(pool)
	enrollments := postgres.NewEnrollmentRepository(pool)
	matches := postgres.NewMatchRepository(pool)

	enrolled, err := enrollments.CountEnrollments(ctx)
	if err != nil {
		return fmt.Errorf("counting enrollments: %w", err)
	}
	if enrolled == 0 {
		fmt.Println("No enrolled persons - nothing to match against.")
		return nil
	}
	fmt.Printf("Enrolled persons: %d\n", enrolled)

	extractor := recognizer.NewClient(
		cfg.Recognizer.URL,
		cfg.Recognizer.Dim,
		time.Duration(cfg.Recognizer.TimeoutSeconds)*time.Second,
	)
	if err := extractor.Ready(ctx); err != nil {
		return fmt.Errorf("recognizer backend: %w", err)
	}

	resolver := auth.NewStoreResolver(persons, photos)
	reg := registry.New(matches, photos, persons, resolver)
	orchestrator := matching.NewOrchestrator(extractor, enrollments, reg, matching.Options{
		Threshold: threshold,
		FailFast:  failFast,
	})

	paths, err := listImageFiles(dir, limit)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No image files found.")
		return nil
	}
	fmt.Printf("Photos to process: %d\n\n", len(paths))

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Matching faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, errorCount, totalMatches int
	var firstErr error
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report, err := processOne(ctx, orchestrator, photos, photographer, path)

			mu.Lock()
			defer mu.Unlock()
			bar.Add(1)
			if err != nil {
				errorCount++
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				return
			}
			successCount++
			totalMatches += report.Matched
		}(path)
	}
	wg.Wait()

	fmt.Printf("\n\nProcessed: %d photos (%d failed)\n", successCount, errorCount)
	fmt.Printf("Matches recorded: %d\n", totalMatches)

	if failFast && firstErr != nil {
		return firstErr
	}
	return nil
}

// processOne registers one photo and runs it through the matching pipeline.
func processOne(
	ctx context.Context,
	orchestrator *matching.Orchestrator,
	photos database.PhotoWriter,
	photographer, path string,
) (*matching.Report, error) {
	imageData, err := os.ReadFile(path) //nolint:gosec // operator-supplied directory
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Shrink before shipping to the extraction service.
	if resized, err := recognizer.ResizeImage(imageData, constants.MaxImageSize); err == nil {
		imageData = resized
	}

	photo := database.Photo{
		ID:             uuid.NewString(),
		PhotographerID: photographer,
		Title:          filepath.Base(path),
	}
	if err := photos.CreatePhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("registering photo: %w", err)
	}

	return orchestrator.ProcessPhoto(ctx, photo.ID, imageData)
}
