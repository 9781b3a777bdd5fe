package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
)

// sweepView renders a sweep report.
type sweepView struct {
	engine.SweepReport
}

func (v sweepView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Pending unlocks found: %d\n", v.PendingFound)
	fmt.Fprintf(w, "Unlocked:              %d\n", v.Unlocked)
	fmt.Fprintf(w, "Purged:                %d\n", v.Purged)
	fmt.Fprintf(w, "Reindexed:             %d\n", v.Reindexed)
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one maintenance pass",
		Long: `Retry unlocks for waves that reached quorum without a chat room, then purge
waves expired longer than the retention period.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				report, err := rt.engine.Sweeper.RunOnce(ctx)
				if err != nil {
					return out.Fail("sweep failed", err)
				}
				return out.Success(sweepView{report})
			})
		},
	}
}
