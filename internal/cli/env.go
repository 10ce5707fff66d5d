package cli

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/pkg/logger"
)

// loadConfig reads --config when given, else the CADENCE_CONFIG/.env/env layers.
func loadConfig(ctx context.Context, opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// initLogging installs the global logger writing to w.
func initLogging(ctx context.Context, cfg *config.Config, opts *RootOptions, w io.Writer) (logger.Logger, error) {
	lopts := []logger.Option{logger.WithOutput(w)}
	if opts.Format == "json" {
		lopts = append(lopts, logger.WithJSON())
	}
	if cfg.LogFile != "" {
		lopts = append(lopts, logger.WithFile(cfg.LogFile, 0, 0, 0))
	}
	if err := logger.Init(lopts...); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logging", err)
	}

	log := logger.Get()
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return log, nil
}

// startService loads config, sets up logging and starts a service.
// The caller must Stop it.
func startService(cmd *cobra.Command, opts *RootOptions, logTo io.Writer) (*service.Service, *config.Config, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	log, err := initLogging(ctx, cfg, opts, logTo)
	if err != nil {
		return nil, nil, err
	}

	svcOpts, err := service.FromConfig(cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	svcOpts = append(svcOpts, service.WithLogger(log))
	svcOpts = append(svcOpts, opts.serviceOptions...)

	svc := service.New(svcOpts...)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to start service", err)
	}
	return svc, cfg, nil
}

// withService runs fn against a started service and prints its result.
// Logs go to stderr so stdout carries only the result.
func withService(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, svc *service.Service) (any, error)) (err error) {
	svc, _, err := startService(cmd, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := svc.Stop(context.WithoutCancel(cmd.Context())); stopErr != nil {
			err = errors.Join(err, WrapExitError(ExitCommandError, "failed to stop service", stopErr))
		}
	}()

	out, err := fn(cmd.Context(), svc)
	if err != nil {
		return err
	}
	return newFormatter(opts, cmd.OutOrStdout()).Success(out)
}

// parseUserID reads a positive user id argument.
func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid user id "+strconv.Quote(raw))
	}
	return id, nil
}
