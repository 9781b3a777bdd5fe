package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/config"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect engine configuration",
	}
	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	cmd.AddCommand(newConfigActivitiesCommand(rootOpts))
	return cmd
}

// configSummary is the result of config validate.
type configSummary struct {
	File          string `json:"file,omitempty"`
	Activities    int    `json:"activities"`
	TTL           string `json:"ttl"`
	TimeZone      string `json:"time_zone"`
	SweepInterval string `json:"sweep_interval"`
}

func (s configSummary) renderText(w io.Writer) {
	name := s.File
	if name == "" {
		name = "defaults"
	}
	fmt.Fprintf(w, "✓ %s is valid\n", name)
	fmt.Fprintf(w, "  Activities:     %d\n", s.Activities)
	fmt.Fprintf(w, "  Wave TTL:       %s\n", s.TTL)
	fmt.Fprintf(w, "  Time zone:      %s\n", s.TimeZone)
	fmt.Fprintf(w, "  Sweep interval: %s\n", s.SweepInterval)
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file against the schema",
		Long: `Unify a CUE or JSON configuration file with the built-in schema and report
the first violation. Without an argument the --config file is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			out := rootOpts.formatter(cmd)

			cfg, err := config.Load(path)
			if err != nil {
				var cerr *config.Error
				if errors.As(err, &cerr) {
					if outErr := out.Error(CodeValidation, cerr.Message, cerr.File); outErr != nil {
						return outErr
					}
					return WrapExitError(ExitFailure, "invalid configuration", err)
				}
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}

			return out.Success(configSummary{
				File:          path,
				Activities:    len(cfg.Activities),
				TTL:           cfg.Wave.TTL.String(),
				TimeZone:      cfg.Query.TimeZone,
				SweepInterval: cfg.Sweep.Interval.Round(time.Second).String(),
			})
		},
	}
}

type activitiesView struct {
	Activities []wave.Activity `json:"activities"`
}

func (v activitiesView) renderText(w io.Writer) {
	for _, a := range v.Activities {
		loc := ""
		if a.RequiresLocation {
			loc = "  (location required)"
		}
		fmt.Fprintf(w, "%s %-12s %-20s threshold %d%s\n", a.Emoji, a.Type, a.Label, a.DefaultThreshold, loc)
	}
}

func newConfigActivitiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activities",
		Short: "List the activity catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			catalog, err := cfg.Catalog()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid activity catalog", err)
			}
			return rootOpts.formatter(cmd).Success(activitiesView{Activities: catalog.All()})
		},
	}
}
