package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/vaultflow/internal/infra/storage/postgres"
	"github.com/vietddude/vaultflow/internal/notify"
)

var deleteVaultCmd = &cobra.Command{
	Use:   "delete-vault [vault_id]",
	Short: "Remove a vault record and its index entries (administrative)",
	Args:  cobra.ExactArgs(1),
	Run:   runDeleteVault,
}

func init() {
	rootCmd.AddCommand(deleteVaultCmd)
}

func runDeleteVault(cmd *cobra.Command, args []string) {
	vaultID := args[0]

	cfg := loadConfig()

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	// Direct SQL keeps the override independent of the engine. The record
	// and both index entries go together so no dangling references remain.
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		slog.Error("Failed to begin transaction", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, "DELETE FROM vaults WHERE id = $1", vaultID)
	if err != nil {
		slog.Error("Failed to delete vault", "error", err)
		os.Exit(1)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM owner_vaults WHERE vault_id = $1", vaultID); err != nil {
		slog.Error("Failed to delete owner index entry", "error", err)
		os.Exit(1)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM active_vaults WHERE vault_id = $1", vaultID); err != nil {
		slog.Error("Failed to delete active set entry", "error", err)
		os.Exit(1)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("Failed to commit", "error", err)
		os.Exit(1)
	}

	deleted, _ := res.RowsAffected()
	if deleted == 0 {
		fmt.Printf("Vault %s not found\n", vaultID)
		return
	}

	notify.NewLogNotifier().Notify(ctx, notify.EventVaultDeleted, "vault", vaultID)
	fmt.Printf("Successfully deleted vault %s\n", vaultID)
}
