package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/ui"
	"github.com/josephgoksu/ideaflow/internal/watch"
)

// watchTool is recorded as the tool of snapshots taken by watch --snapshot.
const watchTool = "file_watch"

var watchCmd = &cobra.Command{
	Use:   "watch <idea>",
	Short: "Report file changes in the active branch folder",
	Long: `Watch the active branch folder of an idea and print a line per batch of
changes. Dependency directories and the versions/ tree are ignored. When
the active branch changes, the watch follows it to the new folder.

With --snapshot, every batch is captured as a new version.

Examples:
  ideaflow watch idea-1a2b
  ideaflow watch idea-1a2b --snapshot --delay 2s`,
	Annotations: map[string]string{longRunning: "true"},
	Args:        cobra.ExactArgs(1),
	RunE:        runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("snapshot", false, "Snapshot the idea after each batch")
	watchCmd.Flags().Duration("delay", watch.DefaultDelay, "Quiet period before a batch is reported")
	watchCmd.Flags().Duration("poll", 2*time.Second, "How often to check for a branch switch")
}

func runWatch(cmd *cobra.Command, args []string) error {
	snap, _ := cmd.Flags().GetBool("snapshot")
	delay, _ := cmd.Flags().GetDuration("delay")
	poll, _ := cmd.Flags().GetDuration("poll")
	if poll <= 0 {
		return fmt.Errorf("--poll must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideaID, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		branches := app.NewBranchApp(appCtx)
		snapshots := app.NewSnapshotApp(appCtx)

		folder, err := branches.ActiveFolder(ctx, ideaID)
		if err != nil {
			return err
		}
		w, err := watch.New(folder, watch.Options{Delay: delay, Logger: appCtx.Logger})
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		if err := w.Start(); err != nil {
			return err
		}
		if !isJSON() {
			fmt.Printf("Watching %s (Ctrl+C to stop)\n", ui.StyleBranchFolder.Render(folder))
		}

		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil

			case <-ticker.C:
				next, err := branches.ActiveFolder(ctx, ideaID)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					appCtx.Logger.Warn("active folder lookup failed", zap.Error(err))
					continue
				}
				if next == w.Dir() {
					continue
				}
				if err := w.Retarget(next); err != nil {
					return err
				}
				if !isJSON() {
					fmt.Printf("%s Now watching %s\n", ui.Icon("●", ui.StyleBranchActive), ui.StyleBranchFolder.Render(next))
				}

			case batch, ok := <-w.Batches():
				if !ok {
					return nil
				}
				printBatch(batch)
				if !snap {
					continue
				}
				s, err := snapshots.Create(ctx, ideaID, []string{watchTool})
				if err != nil {
					appCtx.Logger.Warn("snapshot after file changes failed", zap.Error(err))
					continue
				}
				if !isJSON() {
					fmt.Printf("  %s Snapshot %s\n", ui.Icon("✓", ui.StyleSuccess), ui.StyleVersion.Render(fmt.Sprintf("v%d", s.Version)))
				}
			}
		}
	})
}

// printBatch prints one line per change, or one JSON object per batch.
func printBatch(b watch.Batch) {
	if isJSON() {
		data, err := json.Marshal(b)
		if err == nil {
			fmt.Println(string(data))
		}
		return
	}
	fmt.Println(ui.StyleSubtle.Render(b.At.Local().Format("15:04:05")))
	for _, e := range b.Events {
		switch e.Op {
		case watch.OpCreate:
			fmt.Println(ui.StyleAdded.Render("  + " + e.Path))
		case watch.OpDelete, watch.OpRename:
			fmt.Println(ui.StyleRemoved.Render("  - " + e.Path))
		default:
			fmt.Println(ui.StyleChanged.Render("  ~ " + e.Path))
		}
	}
}
