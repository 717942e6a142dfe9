package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crewpix",
	Short: "Event photo distribution with facial recognition",
	Long: `Crewpix matches event photos to enrolled participants using facial
recognition. Photographers upload photos, participants enroll face samples,
and the matcher links each detected face to the right person so everyone
receives the photos they appear in.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
