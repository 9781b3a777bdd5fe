package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/store"
)

type statsView struct {
	store.Stats
}

func (v statsView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Waves:          %d\n", v.Waves)
	fmt.Fprintf(w, "  active:       %d\n", v.Active)
	fmt.Fprintf(w, "  unlocked:     %d\n", v.Unlocked)
	fmt.Fprintf(w, "  pending:      %d\n", v.PendingUnlock)
	fmt.Fprintf(w, "Participants:   %d\n", v.Participants)
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize stored waves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				st, err := rt.engine.Stats(ctx)
				if err != nil {
					return out.Fail("stats failed", err)
				}
				return out.Success(statsView{st})
			})
		},
	}
}
