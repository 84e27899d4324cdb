package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldsync/agent/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sync status of the device",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	status, err := agent.Status(ctx)
	if err != nil {
		slog.Error("Failed to compute status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "REGISTERED\tSYNCED\tPENDING\tVERIFIED\tLAST SYNC")
	lastSync := "never"
	if status.LastSync != nil {
		lastSync = status.LastSync.Format("2006-01-02 15:04:05")
	}
	_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\n",
		status.TotalRegistered, status.Synced, status.Pending,
		status.Verified, lastSync)
	_ = w.Flush()
}
