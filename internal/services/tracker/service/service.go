// Package service provides the tracker runner: retrieve from an adapter, write to a sink
package service

import (
	"context"
	"errors"
	"time"

	"sentinel/internal/core/validate"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	"sentinel/internal/services/tracker/domain"
	"sentinel/internal/services/tracker/guardrails"

	"github.com/google/uuid"
)

// bookkeeping writes get their own budget so a run that hit its deadline is still recorded
const runLogTimeout = 10 * time.Second

// Config holds configuration options for the runner
type Config struct {
	// RunTimeout bounds one tracker run, zero means no deadline
	RunTimeout time.Duration

	// RetrieveTimeout and WriteTimeout bound the two phases inside a run
	RetrieveTimeout time.Duration
	WriteTimeout    time.Duration
}

func (c Config) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{Run: c.RunTimeout, Retrieve: c.RetrieveTimeout, Write: c.WriteTimeout}
}

// Service implements domain.RunnerPort
type Service struct {
	Sink domain.Sink
	// Runs is optional, nil skips run bookkeeping
	Runs domain.RunLog
	Cfg  Config

	newID func() string
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the runner, panics on a nil sink
func New(sink domain.Sink, runs domain.RunLog, cfg Config) *Service {
	if sink == nil {
		panic("tracker.Service requires a non nil Sink")
	}
	return &Service{Sink: sink, Runs: runs, Cfg: cfg, newID: uuid.NewString}
}

// runOptions is validated before anything touches a source
type runOptions struct {
	Window   domain.Window
	Trackers []string `validate:"min=1,dive,required"`
}

// Run retrieves contributions from a over [since, until] and writes them to the sink
func (s *Service) Run(ctx context.Context, a domain.Adapter, since, until time.Time) (domain.Result, error) {
	if a == nil {
		return domain.Result{}, perr.InvalidArgf("tracker: nil adapter")
	}
	w, err := s.check([]domain.Adapter{a}, since, until)
	if err != nil {
		return domain.Result{}, perr.WithOp(err, "tracker.Run")
	}
	return s.run(ctx, s.newID(), a, w)
}

// RunAll runs each adapter in order under one run id; the first error aborts the rest
func (s *Service) RunAll(ctx context.Context, as []domain.Adapter, since, until time.Time) ([]domain.Result, error) {
	w, err := s.check(as, since, until)
	if err != nil {
		return nil, perr.WithOp(err, "tracker.RunAll")
	}
	runID := s.newID()
	out := make([]domain.Result, 0, len(as))
	for _, a := range as {
		if a == nil {
			return out, perr.InvalidArgf("tracker: nil adapter")
		}
		res, err := s.run(ctx, runID, a, w)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *Service) check(as []domain.Adapter, since, until time.Time) (domain.Window, error) {
	opts := runOptions{Window: domain.Window{Since: since.UTC(), Until: until.UTC()}}
	for _, a := range as {
		if a != nil {
			opts.Trackers = append(opts.Trackers, string(a.Name()))
		}
	}
	if err := validate.Struct(opts); err != nil {
		return domain.Window{}, err
	}
	return opts.Window, nil
}

func (s *Service) run(ctx context.Context, runID string, a domain.Adapter, w domain.Window) (res domain.Result, retErr error) {
	name := a.Name()
	res.Tracker = name
	tos := s.Cfg.timeouts()

	ctx = logger.WithRun(ctx, runID, string(name))
	runCtx, cancel := guardrails.WithRun(ctx, tos)
	defer cancel()
	log := logger.C(ctx)

	s.startRun(ctx, runID, name, w)
	defer func() { s.finishRun(ctx, runID, name, res, retErr) }()

	log.Info().Time("since", w.Since).Time("until", w.Until).Msg("tracker: run started")

	t0 := time.Now()
	rctx, rcancel := guardrails.ForRetrieve(runCtx, tos)
	batch, err := a.Retrieve(rctx, w.Since, w.Until)
	rcancel()
	res.RetrieveDur = time.Since(t0)
	if err != nil {
		log.Error().Err(err).Dur("retrieve", res.RetrieveDur).Msg("tracker: retrieve failed")
		return res, perr.WithOp(classify(err), "tracker.Retrieve")
	}
	res.Total = len(batch)

	t1 := time.Now()
	wctx, wcancel := guardrails.ForWrite(runCtx, tos)
	accepted, err := s.Sink.AddBatch(wctx, batch)
	wcancel()
	res.WriteDur = time.Since(t1)
	if err != nil {
		log.Error().Err(err).Int("total", res.Total).Msg("tracker: write failed")
		return res, perr.WithOp(classify(err), "tracker.AddBatch")
	}
	res.Accepted = accepted
	res.Skipped = res.Total - accepted

	log.Info().
		Int("total", res.Total).
		Int("accepted", res.Accepted).
		Int("skipped", res.Skipped).
		Dur("retrieve", res.RetrieveDur).
		Dur("write", res.WriteDur).
		Msg("tracker: run finished")
	return res, nil
}

// classify gives bare errors a code; a blown deadline counts as an unavailable source
func classify(err error) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "tracker: run deadline exceeded")
	}
	return perr.Wrap(err, perr.ErrorCodeUnknown, "tracker: run failed")
}

func (s *Service) startRun(ctx context.Context, runID string, t domain.TrackerName, w domain.Window) {
	if s.Runs == nil {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runLogTimeout)
	defer cancel()
	if err := s.Runs.Start(lctx, runID, t, w); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("tracker: run log start failed")
	}
}

func (s *Service) finishRun(ctx context.Context, runID string, t domain.TrackerName, res domain.Result, runErr error) {
	if s.Runs == nil {
		return
	}
	fin := domain.RunFinish{Status: "ok", Result: res}
	if runErr != nil {
		fin.Status, fin.ErrText = "error", runErr.Error()
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runLogTimeout)
	defer cancel()
	if err := s.Runs.Finish(lctx, runID, t, fin); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("tracker: run log finish failed")
	}
}
