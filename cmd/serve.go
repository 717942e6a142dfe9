package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewpix/crewpix/internal/config"
	"github.com/crewpix/crewpix/internal/database/postgres"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Crewpix API server.
The server exposes the face enrollment and matching endpoints backed by
PostgreSQL and the descriptor extraction service.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	stores := web.Stores{
		Persons:     postgres.NewPersonRepository(pool),
		Photos:      postgres.NewPhotoRepository(pool),
		Enrollments: postgres.NewEnrollmentRepository(pool),
		Matches:     postgres.NewMatchRepository(pool),
	}

	extractor := recognizer.NewClient(
		cfg.Recognizer.URL,
		cfg.Recognizer.Dim,
		time.Duration(cfg.Recognizer.TimeoutSeconds)*time.Second,
	)

	host := mustGetString(cmd, "host")
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}

	server := web.NewServer(cfg, host, stores, extractor, pool.DB())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Crewpix API on http://%s:%d\n", host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
