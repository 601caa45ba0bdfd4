package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/catalog/internal/observability"
)

// TokenPurger removes auth tokens that expired or were revoked before the
// cutoff. The postgres and memory token repos implement it.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	Interval time.Duration
	// Timeout bounds a single sweep.
	Timeout time.Duration
}

type Sweeper struct {
	cfg    Config
	tokens TokenPurger
	log    *slog.Logger
	prom   *observability.Prom
	now    func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, tokens TokenPurger, log *slog.Logger, prom *observability.Prom) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Sweeper{
		cfg:    cfg,
		tokens: tokens,
		log:    log,
		prom:   prom,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.setReady(true)
	defer s.setReady(false)

	s.log.Info("sweeper started", "interval", s.cfg.Interval.String())

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper received shutdown signal")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce deletes every token record that is no longer usable.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	n, err := s.tokens.DeleteExpired(cctx, s.now())
	if err != nil {
		if s.prom != nil {
			s.prom.SweepErrorsTotal.Inc()
		}
		return 0, err
	}

	if s.prom != nil {
		s.prom.TokensSweptTotal.Add(float64(n))
	}
	return n, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()

	n, err := s.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.ErrorContext(ctx, "token sweep failed", "err", err)
		return
	}

	if n > 0 {
		s.log.InfoContext(ctx, "token sweep done", "deleted", n, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Sweeper) setReady(v bool) {
	s.readyMu.Lock()
	s.ready = v
	s.readyMu.Unlock()
}

func (s *Sweeper) Ready() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}
