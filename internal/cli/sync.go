package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldsync/agent/internal/control"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the pending operation queue once",
	Run:   runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	agent, err := control.NewAgent(ctx, *cfg)
	if err != nil {
		slog.Error("Failed to initialize agent", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = agent.Stop(ctx)
	}()

	result, err := agent.SyncNow(ctx)
	if err != nil {
		slog.Error("Sync failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("synced=%d failed=%d requeued=%d\n",
		result.Synced, result.Failed, result.Requeued)
}
