package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	redisclient "github.com/vietddude/vaultflow/internal/infra/redis"
	"github.com/vietddude/vaultflow/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current health and workload of the engine",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	// API health
	addr := cfg.Server.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://" + addr + "/healthz")
	switch {
	case err != nil:
		fmt.Printf("API:       %s (%v)\n", color.RedString("UNREACHABLE"), err)
	case resp.StatusCode == http.StatusOK:
		resp.Body.Close()
		fmt.Printf("API:       %s\n", color.GreenString("OK"))
	default:
		resp.Body.Close()
		fmt.Printf("API:       %s (status %d)\n", color.YellowString("DEGRADED"), resp.StatusCode)
	}

	// Pending callbacks
	if rc, err := redisclient.NewClient(cfg.Redis); err == nil {
		if pending, err := rc.PendingCount(ctx); err == nil {
			fmt.Printf("Callbacks: %d pending\n", pending)
		}
		_ = rc.Close()
	} else {
		fmt.Printf("Callbacks: %s (%v)\n", color.RedString("UNREACHABLE"), err)
	}

	// Vault counts by status
	if cfg.Storage.Backend != "postgres" {
		return
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx, `
		SELECT split_part(record, ',', 9) AS status, count(*)
		FROM vaults GROUP BY 1 ORDER BY 1`)
	if err != nil {
		slog.Error("Failed to query vaults", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	statusNames := map[string]string{
		"0": "ACTIVE",
		"1": "PAUSED",
		"2": "COMPLETED",
		"3": "INSUFFICIENT_BALANCE",
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tVAULTS")
	for rows.Next() {
		var code string
		var count int64
		if err := rows.Scan(&code, &count); err != nil {
			continue
		}
		name := statusNames[code]
		if name == "" {
			name = "UNKNOWN(" + code + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", name, count)
	}
	_ = w.Flush()
}
