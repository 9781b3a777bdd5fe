package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// withRuntime opens the engine for the duration of fn.
func withRuntime(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, opts, opts.logger(cmd.ErrOrStderr(), slog.LevelWarn))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// requireUser rejects an empty --as.
func requireUser(as string) error {
	if strings.TrimSpace(as) == "" {
		return NewExitError(ExitCommandError, "--as is required")
	}
	return nil
}

// waveView renders one wave.
type waveView struct {
	wave.Wave
}

func (v waveView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Wave %s (%s)\n", v.ID, v.Activity)
	fmt.Fprintf(w, "  Creator:      %s\n", v.CreatorID)
	if v.Area != "" {
		fmt.Fprintf(w, "  Area:         %s\n", v.Area)
	}
	if v.LocationName != "" {
		fmt.Fprintf(w, "  Location:     %s\n", v.LocationName)
	}
	if v.Location != nil {
		fmt.Fprintf(w, "  Coordinates:  %.5f, %.5f\n", v.Location.Lat, v.Location.Lng)
	}
	if v.ScheduledFor != nil {
		fmt.Fprintf(w, "  Scheduled:    %s\n", v.ScheduledFor.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Participants: %d/%d\n", v.ParticipantCount, v.Threshold)
	fmt.Fprintf(w, "  State:        %s\n", v.State())
	if v.ChatRoomID != "" {
		fmt.Fprintf(w, "  Chat room:    %s\n", v.ChatRoomID)
	}
	if v.Thought != "" {
		fmt.Fprintf(w, "  Thought:      %s\n", v.Thought)
	}
	fmt.Fprintf(w, "  Expires:      %s\n", v.ExpiresAt.Format(time.RFC3339))
}

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	As           string
	Activity     string
	Area         string
	LocationName string
	Lat          float64
	Lng          float64
	At           string
	In           time.Duration
	Threshold    int
	Thought      string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a wave",
		Long: `Start a wave for an activity. The creator joins it immediately.

Without --at or --in the activity is happening now.`,
		Example: `  wavectl create --as u1 --activity run --lat 1.3521 --lng 103.8198
  wavectl create --as u1 --activity football --location-name "Kallang Field" --lat 1.30 --lng 103.87 --in 3h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "creator user id")
	cmd.Flags().StringVar(&opts.Activity, "activity", "", "activity type from the catalog")
	cmd.Flags().StringVar(&opts.Area, "area", "", "free-text neighbourhood")
	cmd.Flags().StringVar(&opts.LocationName, "location-name", "", "meeting point name")
	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "longitude")
	cmd.Flags().StringVar(&opts.At, "at", "", "scheduled start (RFC3339)")
	cmd.Flags().DurationVar(&opts.In, "in", 0, "scheduled start relative to now")
	cmd.Flags().IntVar(&opts.Threshold, "threshold", 0, "participants needed to unlock (default: activity default)")
	cmd.Flags().StringVar(&opts.Thought, "thought", "", "short note from the creator")
	cmd.MarkFlagsMutuallyExclusive("at", "in")
	cmd.MarkFlagsRequiredTogether("lat", "lng")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *CreateOptions) error {
	if err := requireUser(opts.As); err != nil {
		return err
	}
	req := engine.CreateRequest{
		CreatorID:    opts.As,
		Activity:     wave.ActivityType(opts.Activity),
		Area:         opts.Area,
		LocationName: opts.LocationName,
		Threshold:    opts.Threshold,
		Thought:      opts.Thought,
	}
	if cmd.Flags().Changed("lat") {
		req.Location = &geo.Point{Lat: opts.Lat, Lng: opts.Lng}
	}
	switch {
	case opts.At != "":
		at, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
		req.ScheduledFor = &at
	case opts.In > 0:
		at := time.Now().Add(opts.In)
		req.ScheduledFor = &at
	}

	out := opts.formatter(cmd)
	return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
		w, err := rt.engine.Lifecycle.Create(ctx, req)
		if err != nil {
			return out.Fail("create failed", err)
		}
		return out.Success(waveView{w})
	})
}

// joinView renders a join outcome.
type joinView struct {
	Wave          wave.Wave `json:"wave"`
	IsUnlocked    bool      `json:"is_unlocked"`
	ChatRoomID    string    `json:"chat_room_id,omitempty"`
	AlreadyMember bool      `json:"already_member"`
	PendingUnlock bool      `json:"pending_unlock"`
}

func (v joinView) renderText(w io.Writer) {
	switch {
	case v.AlreadyMember:
		fmt.Fprintf(w, "Already in wave %s (%d/%d)\n", v.Wave.ID, v.Wave.ParticipantCount, v.Wave.Threshold)
	default:
		fmt.Fprintf(w, "Joined wave %s (%d/%d)\n", v.Wave.ID, v.Wave.ParticipantCount, v.Wave.Threshold)
	}
	switch {
	case v.IsUnlocked:
		fmt.Fprintf(w, "Unlocked: chat room %s\n", v.ChatRoomID)
	case v.PendingUnlock:
		fmt.Fprintln(w, "Quorum reached; chat room pending")
	}
}

// JoinOptions holds flags for the join command.
type JoinOptions struct {
	*RootOptions
	As string
}

// NewJoinCommand creates the join command.
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JoinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "join <wave-id>",
		Short: "Join a wave",
		Long: `Join a wave. Joining twice is a no-op. The join that reaches the threshold
unlocks the wave's chat room; joining a pending wave retries the unlock.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(opts.As); err != nil {
				return err
			}
			out := opts.formatter(cmd)
			return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
				res, err := rt.engine.Coordinator.Join(ctx, args[0], opts.As)
				if err != nil {
					return out.Fail("join failed", err)
				}
				return out.Success(joinView{
					Wave:          res.Wave,
					IsUnlocked:    res.Unlocked,
					ChatRoomID:    res.ChatRoomID,
					AlreadyMember: res.AlreadyMember,
					PendingUnlock: res.PendingUnlock,
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "joining user id")
	return cmd
}

// nearbyView renders a result page.
type nearbyView struct {
	engine.NearbyPage
}

func (v nearbyView) renderText(w io.Writer) {
	if len(v.Waves) == 0 {
		fmt.Fprintln(w, "No waves nearby")
		return
	}
	for _, n := range v.Waves {
		fmt.Fprintf(w, "%-14s %-12s %6.2f km  %d/%d  %s\n",
			n.ID, n.Activity, n.DistanceKm, n.ParticipantCount, n.Threshold, n.State())
	}
	if v.NextCursor != "" {
		fmt.Fprintf(w, "Next page: --cursor %s\n", v.NextCursor)
	}
}

// NearbyOptions holds flags for the nearby command.
type NearbyOptions struct {
	*RootOptions
	Lat    float64
	Lng    float64
	Radius float64
	Window string
	Cursor string
	Limit  int
}

// NewNearbyCommand creates the nearby command.
func NewNearbyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NearbyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List active waves near a point",
		Long: `List active waves within a radius of a point, nearest first.

--window restricts by when the activity happens: any, now, today or week.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := wave.ParseTimeWindow(opts.Window)
			if err != nil {
				return opts.formatter(cmd).Fail("invalid window", err)
			}
			out := opts.formatter(cmd)
			return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
				page, err := rt.engine.Query.Nearby(ctx, engine.NearbyRequest{
					Center:   geo.Point{Lat: opts.Lat, Lng: opts.Lng},
					RadiusKm: opts.Radius,
					Window:   window,
					Cursor:   opts.Cursor,
					Limit:    opts.Limit,
				})
				if err != nil {
					return out.Fail("nearby failed", err)
				}
				return out.Success(nearbyView{page})
			})
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "longitude")
	cmd.Flags().Float64Var(&opts.Radius, "radius", 0, "radius in km (default from config)")
	cmd.Flags().StringVar(&opts.Window, "window", "any", "time window (any|now|today|week)")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "cursor from the previous page")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from config)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

// participantsView renders the members of a wave.
type participantsView struct {
	WaveID       string             `json:"wave_id"`
	Participants []wave.Participant `json:"participants"`
}

func (v participantsView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Participants of %s:\n", v.WaveID)
	for _, p := range v.Participants {
		fmt.Fprintf(w, "  %s (joined %s)\n", p.UserID, p.JoinedAt.Format(time.RFC3339))
	}
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Participants bool
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <wave-id>",
		Short: "Show an active wave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
				if opts.Participants {
					ps, err := rt.engine.Lifecycle.Participants(ctx, args[0])
					if err != nil {
						return out.Fail("participants failed", err)
					}
					return out.Success(participantsView{WaveID: args[0], Participants: ps})
				}
				w, err := rt.engine.Lifecycle.Get(ctx, args[0])
				if err != nil {
					return out.Fail("get failed", err)
				}
				return out.Success(waveView{w})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Participants, "participants", false, "list participants instead")
	return cmd
}

// deletedView confirms a deletion.
type deletedView struct {
	Deleted string `json:"deleted"`
}

func (v deletedView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Deleted wave %s\n", v.Deleted)
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	As string
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <wave-id>",
		Short: "Delete a wave you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(opts.As); err != nil {
				return err
			}
			out := opts.formatter(cmd)
			return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
				if err := rt.engine.Lifecycle.Delete(ctx, args[0], opts.As); err != nil {
					return out.Fail("delete failed", err)
				}
				return out.Success(deletedView{Deleted: args[0]})
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "requesting user id")
	return cmd
}
