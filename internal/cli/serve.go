package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/api"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/config"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	JWTSecret string
	JWTIssuer string
	Origins   []string
	NoSweep   bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions, env config.Env) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background sweeper",
		Long: `Serve the wave API over HTTP until interrupted.

Every /api route requires a bearer JWT signed with --jwt-secret (HS256). The
sweeper retries pending unlocks and purges long-expired waves unless
--no-sweep is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", env.Addr, "listen address [$WAVE_ADDR]")
	cmd.Flags().StringVar(&opts.JWTSecret, "jwt-secret", env.JWTSecret, "HMAC secret for bearer tokens [$WAVE_JWT_SECRET]")
	cmd.Flags().StringVar(&opts.JWTIssuer, "jwt-issuer", env.JWTIssuer, "required token issuer; empty accepts any [$WAVE_JWT_ISSUER]")
	cmd.Flags().StringSliceVar(&opts.Origins, "origins", nil, "allowed CORS origins (default any)")
	cmd.Flags().BoolVar(&opts.NoSweep, "no-sweep", false, "do not run the background sweeper")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	if strings.TrimSpace(opts.JWTSecret) == "" {
		return NewExitError(ExitCommandError, "no JWT secret given (use --jwt-secret or WAVE_JWT_SECRET)")
	}
	logger := opts.logger(cmd.ErrOrStderr(), slog.LevelInfo)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	rt, err := openRuntime(ctx, opts.RootOptions, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.redis != nil {
		// The shared index may have missed waves created while it was down.
		if n, err := rt.engine.Lifecycle.WarmIndex(ctx); err != nil {
			logger.Warn("warm redis geo index failed", "error", err)
		} else {
			logger.Debug("redis geo index warmed", "waves", n)
		}
	}

	handler, err := api.NewServer(rt.engine, api.Config{
		JWTSecret:      opts.JWTSecret,
		JWTIssuer:      opts.JWTIssuer,
		AllowedOrigins: opts.Origins,
		Logger:         logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build API server", err)
	}

	var wg sync.WaitGroup
	if !opts.NoSweep {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.engine.Sweeper.Start(ctx)
		}()
	}

	httpSrv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", opts.Addr, "db", opts.Database, "redis", opts.RedisAddr != "")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
	case listenErr = <-serveErr:
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	rt.engine.Sweeper.Stop()
	wg.Wait()

	if listenErr != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to listen on %s", opts.Addr), listenErr)
	}
	logger.Info("server stopped gracefully")
	return nil
}
