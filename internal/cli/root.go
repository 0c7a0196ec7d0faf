// Package cli implements the fluxgate command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxgate-io/fluxgate/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fluxgate",
	Short: "Fluxgate ingestion gateway",
	Long: `fluxgate is the multi-tenant ingestion-and-delivery gateway.

It normalizes raw inputs from users, providers, and devices into canonical
events, applies per-app policy and translation, and delivers the results
downstream with durable dead-lettering and connector sync.`,
	Version: "0.1.0",
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
}
