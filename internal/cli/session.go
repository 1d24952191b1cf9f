package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/vendorsync/internal/config"
	"github.com/roach88/vendorsync/internal/gateway"
	"github.com/roach88/vendorsync/internal/logger"
	"github.com/roach88/vendorsync/internal/pipeline"
	"github.com/roach88/vendorsync/internal/store"
)

// session is everything one command invocation opens: configuration, the
// output directory lock, the checkpoint backend and the pipeline.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	lock    *store.Lock
	backend store.Backend
	pipe    *pipeline.Pipeline
}

// sessionMode selects what a command needs.
type sessionMode int

const (
	// modeStage validates every core option, locks the output directory
	// and connects the gateway.
	modeStage sessionMode = iota
	// modeReadOnly needs only the output directory and takes no lock.
	modeReadOnly
)

func openSession(opts *RootOptions, cmd *cobra.Command, mode sessionMode) (_ *session, err error) {
	cfg, err := config.Load(opts.viper, opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if mode == modeStage {
		err = cfg.ValidateForStages()
	} else {
		err = cfg.ValidateForStatus()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	s := &session{
		cfg: cfg,
		log: logger.New(logger.Options{
			Verbose: opts.Verbose,
			JSON:    opts.LogJSON,
			Output:  cmd.ErrOrStderr(),
		}),
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	var gw gateway.Client
	if mode == modeStage {
		if s.lock, err = store.AcquireLock(cfg.OutputDirpath); err != nil {
			return nil, WrapExitError(ExitFailure, "output directory is busy", err)
		}
		if gw, err = gateway.NewHTTPClient(cfg.APIURLRoot, cfg.APIKey, cfg.HTTPTimeout); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid API settings", err)
		}
	}

	if s.backend, err = store.Open(cfg.Backend, cfg.OutputDirpath); err != nil {
		return nil, wrapStageError("failed to open checkpoint store", err)
	}

	s.pipe = pipeline.New(s.backend, gw, pipeline.Options{
		Logger: s.log,
		Limit:  cfg.Limit,
		Rule:   pipeline.Rule{Field: cfg.Normalize.Field, Prefix: cfg.Normalize.Prefix},
	})
	s.log.Debug("session opened",
		zap.String("output_dir", cfg.OutputDirpath),
		zap.String("backend", cfg.Backend),
		zap.Int("limit", cfg.Limit),
	)
	return s, nil
}

// Close releases the backend and the lock.
func (s *session) Close() {
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.log.Error("error closing checkpoint store", zap.Error(err))
		}
	}
	if err := s.lock.Release(); err != nil {
		s.log.Error("error releasing lock", zap.Error(err))
	}
	_ = s.log.Sync()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. Stages
// stop between keys, leaving the in-flight key pending.
func (s *session) signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			s.log.Warn("received signal, stopping after the current key", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}
