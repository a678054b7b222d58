// Package grinder searches for a vanity keypair: a fixed pool of workers
// draws random keypairs until one address matches the requested prefix
// (and optional suffix). The first worker to match wins; every other
// worker notices within one iteration and exits.
package grinder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vanity-sol/internal/keys"
	"vanity-sol/internal/validate"
)

// Defaults used by the CLI.
const (
	DefaultWorkers       = 10
	DefaultProgressEvery = 1_000_000
)

// Search errors.
var (
	ErrExhausted    = errors.New("no match within search budget")
	ErrWorkerFailed = errors.New("search worker failed")
	ErrAlreadyRun   = errors.New("search already run")
)

// Config holds all search parameters.
type Config struct {
	Prefix        string `json:"prefix" validate:"omitempty,printascii,max=64"`
	Suffix        string `json:"suffix" validate:"omitempty,printascii,max=64"`
	CaseSensitive bool   `json:"caseSensitive"`
	Workers       int    `json:"workers" validate:"gte=1,lte=4096"`

	// MaxAttempts and Timeout bound the search; zero means unbounded.
	MaxAttempts uint64        `json:"maxAttempts"`
	Timeout     time.Duration `json:"timeout" validate:"gte=0"`

	// OnProgress, if set, is called every ProgressEvery attempts from
	// whichever worker claimed that attempt. It must be safe for
	// concurrent use.
	ProgressEvery uint64         `json:"progressEvery"`
	OnProgress    func(Progress) `json:"-" validate:"-"`
}

// Progress is a point-in-time view of a running search.
type Progress struct {
	Attempts uint64
	Elapsed  time.Duration
}

// Match is the winning candidate.
type Match struct {
	Keypair keys.Keypair
	Attempt uint64 // 1-based attempt number that produced the keypair
	Elapsed time.Duration
	Worker  int
}

// Result is the outcome of Run. Match is nil unless a keypair was found.
type Result struct {
	Match    *Match
	Attempts uint64 // total attempts across all workers
	Elapsed  time.Duration
}

// Search is a single search session. All coordination state lives here so
// independent searches never share anything.
type Search struct {
	cfg    Config
	source keys.Source
	match  func(address string) bool
	log    *zap.SugaredLogger

	started  atomic.Bool
	found    atomic.Bool
	aborted  atomic.Bool
	attempts atomic.Uint64

	// winner is written once by the worker that flips found and read
	// only after every worker has been joined.
	winner *Match
	start  time.Time
}

// New validates cfg against the source and returns a ready session.
// A nil log discards log output.
func New(cfg Config, source keys.Source, log *zap.SugaredLogger) (*Search, error) {
	if source == nil {
		return nil, errors.New("keypair source is required")
	}
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := source.Validate(cfg.Prefix, cfg.CaseSensitive); err != nil {
		return nil, fmt.Errorf("prefix: %w", err)
	}
	if err := source.Validate(cfg.Suffix, cfg.CaseSensitive); err != nil {
		return nil, fmt.Errorf("suffix: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Search{
		cfg:    cfg,
		source: source,
		match:  BuildMatcher(source, cfg.Prefix, cfg.Suffix, cfg.CaseSensitive),
		log:    log,
	}, nil
}

// Config returns the configuration the search was built with.
func (s *Search) Config() Config {
	return s.cfg
}

// Attempts returns the number of attempts claimed so far.
func (s *Search) Attempts() uint64 {
	return s.attempts.Load()
}

// Found reports whether a worker has already matched.
func (s *Search) Found() bool {
	return s.found.Load()
}

// Run starts the workers and blocks until all of them have exited. It can
// be called once per Search.
//
// A nil error means Result.Match is set; a recorded match is returned even
// if another worker failed after it. Otherwise the error is the caller's
// context error, ErrExhausted when MaxAttempts or Timeout ran out, or an
// ErrWorkerFailed wrap when a worker could not continue; in that case the
// remaining workers are stopped rather than left running with reduced
// parallelism.
func (s *Search) Run(ctx context.Context) (Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	s.log.Debugw("search started", "chain", s.source.Chain(), "prefix", s.cfg.Prefix,
		"suffix", s.cfg.Suffix, "workers", s.cfg.Workers)

	s.start = time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < s.cfg.Workers; i++ {
		i := i
		g.Go(func() error {
			return s.worker(gctx, i)
		})
	}
	err := g.Wait()

	res := Result{
		Match:    s.winner,
		Attempts: s.attempts.Load(),
		Elapsed:  time.Since(s.start),
	}

	switch {
	case res.Match != nil:
		if err != nil {
			s.log.Warnw("worker failed after match", "attempts", res.Attempts, "ERROR", err)
		}
		s.log.Debugw("search completed", "address", res.Match.Keypair.Address,
			"attempt", res.Match.Attempt, "attempts", res.Attempts, "elapsed", res.Elapsed)
		return res, nil
	case err != nil:
		s.log.Errorw("search failed", "attempts", res.Attempts, "ERROR", err)
		return res, err
	case ctx.Err() != nil:
		return res, ctx.Err()
	}

	s.log.Debugw("search exhausted", "attempts", res.Attempts, "elapsed", res.Elapsed)
	return res, ErrExhausted
}

// worker runs the search loop until a match, a stop signal or a failure.
func (s *Search) worker(ctx context.Context, id int) (err error) {
	s.log.Debugw("worker started", "worker", id)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: worker %d panicked: %v", ErrWorkerFailed, id, r)
		}
		if err != nil {
			s.aborted.Store(true)
		}
		s.log.Debugw("worker stopped", "worker", id)
	}()

	for {
		if s.halted(ctx) {
			return nil
		}

		n, ok := s.claim()
		if !ok {
			return nil
		}

		if every := s.cfg.ProgressEvery; every > 0 && n%every == 0 {
			s.progress(n)
		}

		kp, err := s.source.Generate()
		if err != nil {
			return fmt.Errorf("%w: worker %d: generate keypair: %w", ErrWorkerFailed, id, err)
		}

		if !s.match(kp.Address) {
			continue
		}

		// Losers of a simultaneous match leave the recorded winner alone.
		if s.found.CompareAndSwap(false, true) {
			s.winner = &Match{
				Keypair: kp,
				Attempt: n,
				Elapsed: time.Since(s.start),
				Worker:  id,
			}
		}
		return nil
	}
}

// halted reports whether workers should stop.
func (s *Search) halted(ctx context.Context) bool {
	if s.found.Load() || s.aborted.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// claim reserves the next attempt number. With an attempt budget the
// counter never exceeds MaxAttempts, so the final count equals the number
// of keypairs actually generated.
func (s *Search) claim() (uint64, bool) {
	limit := s.cfg.MaxAttempts
	if limit == 0 {
		return s.attempts.Add(1), true
	}
	for {
		n := s.attempts.Load()
		if n >= limit {
			return n, false
		}
		if s.attempts.CompareAndSwap(n, n+1) {
			return n + 1, true
		}
	}
}

func (s *Search) progress(n uint64) {
	p := Progress{
		Attempts: n,
		Elapsed:  time.Since(s.start),
	}
	s.log.Infow("progress", "attempts", p.Attempts, "elapsed", p.Elapsed.Round(time.Second))
	if s.cfg.OnProgress != nil {
		s.cfg.OnProgress(p)
	}
}
