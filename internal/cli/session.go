package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/registrar/internal/config"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/metrics"
	"github.com/roach88/registrar/internal/registrar"
	"github.com/roach88/registrar/internal/store"
)

// session is one CLI invocation's registrar, wired to the state file.
type session struct {
	opts    *RootOptions
	logger  *slog.Logger
	db      *store.Store
	reg     *registrar.Registrar
	metrics *metrics.Sink
}

// newLogger configures logging based on the verbose flag.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger.Debug("opening database", "path", opts.Database)
	db, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	lastSeq, err := db.LastEventSeq(ctx)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	m := metrics.New()
	sink := registrar.MultiSink{store.NewEventLog(db, logger), m}
	if opts.Verbose {
		sink = append(sink, registrar.LogSink{Logger: logger})
	}

	var clock registrar.Clock = registrar.SystemClock{}
	if opts.nowSet {
		now := ir.Timestamp(opts.Now)
		clock = registrar.ClockFunc(func() ir.Timestamp { return now })
	}

	reg, err := registrar.New(db, cfg, registrar.Options{
		Clock:    clock,
		Identity: registrar.StaticIdentity(opts.Caller),
		Sink:     sink,
		Observer: m,
		Logger:   logger,
		StartSeq: lastSeq,
	})
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create registrar", err)
	}

	return &session{opts: opts, logger: logger, db: db, reg: reg, metrics: m}, nil
}

// Close writes the metrics file, if requested, and closes the database.
func (s *session) Close() {
	if s.opts.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.opts.MetricsFile); err != nil {
			s.logger.Error("error writing metrics", "path", s.opts.MetricsFile, "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// withSession opens a session, runs fn and reports its outcome.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) (any, error)) error {
	out := newFormatter(cmd, opts)
	s, err := openSession(cmd, opts)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	data, err := fn(cmd.Context(), s)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(data)
}
