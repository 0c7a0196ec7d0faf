package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxgate-io/fluxgate/internal/delivery"
	"github.com/fluxgate-io/fluxgate/internal/dlq"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

var replayAppID string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run one dead-letter replay pass",
	Long: `Reads pending dead-letter entries (oldest first) and re-attempts
delivery. Entries that succeed are marked processed; failures are recorded
and left pending for a later pass.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayAppID, "app", "", "only replay entries for this app")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if cfg.DLQ.Backend != "postgres" {
		return fmt.Errorf("replay requires a postgres dead-letter store, configured backend is %q", cfg.DLQ.Backend)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), "text")
	ctx := context.Background()

	store, err := dlq.NewPostgresStore(ctx, cfg.Database.Postgres.ConnString())
	if err != nil {
		return fmt.Errorf("connect dlq store: %w", err)
	}
	defer store.Close()

	sink := delivery.NewClient(cfg.Sink.URL, cfg.Sink.Timeout)
	deliverySvc := delivery.NewService(sink, cfg.Delivery.MaxAttempts, cfg.Delivery.BaseInterval, logger)
	replayer := dlq.NewReplayer(store, deliverySvc, cfg.DLQ.ReplayInterval, cfg.DLQ.ReplayBatch, logger)

	replayed, failed, err := replayer.ReplayOnce(ctx, replayAppID)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	fmt.Printf("Replayed %d entries, %d failed\n", replayed, failed)
	return nil
}
