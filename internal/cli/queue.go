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

var showDropped bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List pending operations, or recent drops with --dropped",
	Run:   runQueue,
}

func init() {
	queueCmd.Flags().BoolVar(&showDropped, "dropped", false, "list recently dropped operations instead")
	rootCmd.AddCommand(queueCmd)
}

func runQueue(cmd *cobra.Command, args []string) {
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

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)

	if showDropped {
		drops, err := agent.Queue().Drops(ctx, 50)
		if err != nil {
			slog.Error("Failed to list drops", "error", err)
			os.Exit(1)
		}
		_, _ = fmt.Fprintln(w, "OPERATION\tKIND\tREASON\tDROPPED AT")
		for _, d := range drops {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				d.OperationID, d.Kind, d.Reason,
				d.DroppedAt.Format("2006-01-02 15:04:05"))
		}
		_ = w.Flush()
		return
	}

	ops, err := agent.Queue().DrainSnapshot(ctx)
	if err != nil {
		slog.Error("Failed to list queue", "error", err)
		os.Exit(1)
	}
	_, _ = fmt.Fprintln(w, "ID\tKIND\tENDPOINT\tRETRIES\tENQUEUED AT")
	for _, op := range ops {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			op.ID, op.Kind, op.Endpoint, op.RetryCount,
			op.EnqueuedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
