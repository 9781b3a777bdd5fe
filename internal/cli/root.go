package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Database   string
	Driver     string
	RedisAddr  string
	ChatURL    string
	ChatToken  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// dotEnvFiles are read for WAVE_* defaults the process environment lacks.
var dotEnvFiles = []string{".env"}

// NewRootCommand creates the root command for wavectl. Flag defaults come
// from the WAVE_* environment variables, then from a .env file in the
// working directory.
func NewRootCommand() *cobra.Command {
	lookup, err := config.DotEnvLookup(os.LookupEnv, dotEnvFiles...)
	cmd := newRootCommand(config.FromEnv(lookup))
	if err != nil {
		cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
			return WrapExitError(ExitCommandError, "failed to read .env", err)
		}
	}
	return cmd
}

func newRootCommand(env config.Env) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wavectl",
		Short: "wavectl - wave quorum matching engine",
		Long: `Create, discover and join waves: short-lived declarations of intent to do an
activity nearby. A wave unlocks a group chat once enough people have joined.`,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", env.Config, "engine configuration file (CUE or JSON) [$WAVE_CONFIG]")
	flags.StringVar(&opts.Database, "db", env.DB, "database path or DSN [$WAVE_DB]")
	flags.StringVar(&opts.Driver, "db-driver", env.DBDriver, "database driver (sqlite|postgres) [$WAVE_DB_DRIVER]")
	flags.StringVar(&opts.RedisAddr, "redis", env.RedisAddr, "Redis address for the shared geo index and unlock events [$WAVE_REDIS_ADDR]")
	flags.StringVar(&opts.ChatURL, "chat-url", env.ChatURL, "chat service base URL; empty keeps rooms in memory [$WAVE_CHAT_URL]")
	flags.StringVar(&opts.ChatToken, "chat-token", env.ChatToken, "bearer token for the chat service [$WAVE_CHAT_TOKEN]")

	cmd.AddCommand(NewServeCommand(opts, env))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewJoinCommand(opts))
	cmd.AddCommand(NewNearbyCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), Verbose: o.Verbose}
}

// logger builds the slog text logger for a command at the given level,
// or debug with --verbose. Logs go to stderr so JSON output on stdout stays
// parseable.
func (o *RootOptions) logger(w io.Writer, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
