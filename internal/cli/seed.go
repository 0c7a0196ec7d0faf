package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxgate-io/fluxgate/internal/seeder"
)

var (
	seedURL      string
	seedToken    string
	seedCount    int
	seedInterval time.Duration
	seedSeed     int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send synthetic raw inputs to a running gateway",
	Long: `Generates random text, voice, webhook, and device inputs and posts
them to the ingest endpoint. A share of the generated content carries
high-risk phrases so the RED lane and approval flow get exercised.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedURL, "url", "http://localhost:8092", "base URL of the gateway")
	seedCmd.Flags().StringVar(&seedToken, "token", "", "bearer token for the API")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of inputs to send")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 0, "pause between sends")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 0, "random seed (0 = time-based)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	seed := seedSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runner := seeder.NewRunner(seeder.NewGenerator(seed), seedURL, seedToken)

	fmt.Printf("Seeding %d inputs to %s\n", seedCount, seedURL)
	sent, err := runner.Run(context.Background(), seedCount, seedInterval)
	fmt.Printf("Sent %d/%d inputs\n", sent, seedCount)
	return err
}
