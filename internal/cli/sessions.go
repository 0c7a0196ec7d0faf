package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxgate-io/fluxgate/internal/vault"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

var (
	sessionsUser     string
	sessionsProvider string

	storeToken     string
	storeExpiresIn time.Duration
	storeTenant    string
	storeScopes    []string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage connector credential sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions for a user or provider",
	RunE:  runSessionsList,
}

var sessionsStoreCmd = &cobra.Command{
	Use:   "store <connector-id> <user-id> <provider>",
	Short: "Encrypt and store a connector credential",
	Args:  cobra.ExactArgs(3),
	RunE:  runSessionsStore,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <connector-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsUser, "user", "", "list active sessions for this user")
	sessionsListCmd.Flags().StringVar(&sessionsProvider, "provider", "", "list sessions for this provider")

	sessionsStoreCmd.Flags().StringVar(&storeToken, "token", "", "plaintext credential to encrypt (required)")
	sessionsStoreCmd.Flags().DurationVar(&storeExpiresIn, "expires-in", 24*time.Hour, "credential lifetime")
	sessionsStoreCmd.Flags().StringVar(&storeTenant, "tenant", "", "tenant ID")
	sessionsStoreCmd.Flags().StringSliceVar(&storeScopes, "scope", nil, "granted scopes")
	sessionsStoreCmd.MarkFlagRequired("token")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsStoreCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openVault(ctx context.Context) (*vault.Vault, func(), error) {
	if cfg.Vault.Backend != "postgres" {
		return nil, nil, fmt.Errorf("sessions commands require a postgres vault store, configured backend is %q", cfg.Vault.Backend)
	}

	store, err := vault.NewPostgresStore(ctx, cfg.Database.Postgres.ConnString())
	if err != nil {
		return nil, nil, fmt.Errorf("connect vault store: %w", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), "text")
	return vault.New(cfg.Vault.Key, store, logger), store.Close, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var sessions []*vault.StoredSession
	switch {
	case sessionsUser != "":
		sessions, err = v.ListActive(ctx, sessionsUser)
	case sessionsProvider != "":
		sessions, err = v.ListByProvider(ctx, sessionsProvider)
	default:
		return fmt.Errorf("one of --user or --provider is required")
	}
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	fmt.Printf("%-36s %-20s %-12s %-25s %s\n", "CONNECTOR", "USER", "PROVIDER", "EXPIRES", "SCOPES")
	for _, s := range sessions {
		fmt.Printf("%-36s %-20s %-12s %-25s %s\n",
			s.ConnectorID, s.UserID, s.Provider,
			s.ExpiresAt.Format(time.RFC3339),
			strings.Join(s.Scopes, ","),
		)
	}
	return nil
}

func runSessionsStore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	token := &vault.SessionToken{
		Token:       storeToken,
		ExpiresAt:   time.Now().Add(storeExpiresIn),
		ConnectorID: args[0],
		UserID:      args[1],
		TenantID:    storeTenant,
		Provider:    args[2],
		Scopes:      storeScopes,
	}
	if err := v.StoreToken(ctx, token); err != nil {
		return err
	}

	fmt.Printf("Stored session for connector %s\n", args[0])
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := v.DeleteToken(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session for connector %s\n", args[0])
	return nil
}
