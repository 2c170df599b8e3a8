// Package clicksync merges the click deltas accrued in the cache into the
// durable click totals. A periodic sweep over every known short code is the
// durability backstop; redirects additionally request eager per-code
// flushes, which are best-effort and may be dropped under load.
package clicksync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const flushBufferSize = 256

// URLRepository is the durable-store surface the syncer needs: code
// enumeration for sweeps and the atomic merge of a delta into the total.
type URLRepository interface {
	ListShortCodes(ctx context.Context) ([]string, error)
	IncrementClicks(ctx context.Context, shortCode string, delta int64) error
}

// ClickCache is the cache surface the syncer needs. ReadAndResetClicks
// must consume the pending delta atomically; AddClicks returns a consumed
// delta after a failed merge.
type ClickCache interface {
	ReadAndResetClicks(ctx context.Context, shortCode string) (int64, error)
	AddClicks(ctx context.Context, shortCode string, delta int64) error
}

// Syncer runs the click reconciliation loop.
type Syncer struct {
	repo     URLRepository
	cache    ClickCache
	interval time.Duration
	logger   *slog.Logger
	flushes  chan string
}

func NewSyncer(repo URLRepository, cache ClickCache, interval time.Duration, logger *slog.Logger) *Syncer {
	return &Syncer{
		repo:     repo,
		cache:    cache,
		interval: interval,
		logger:   logger,
		flushes:  make(chan string, flushBufferSize),
	}
}

// Flush requests an eager reconciliation of shortCode without blocking the
// caller. When the buffer is full the request is dropped; the periodic
// sweep picks the code up on its next pass.
func (s *Syncer) Flush(shortCode string) {
	select {
	case s.flushes <- shortCode:
	default:
	}
}

// Run drives the reconciliation loop until ctx is cancelled: a full sweep
// every interval, interleaved with eager flush requests from redirects.
// It always returns nil so a shutdown does not read as a failure.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case shortCode := <-s.flushes:
			if err := s.SyncCode(ctx, shortCode); err != nil {
				s.logger.Error("eager click sync failed",
					slog.String("short_code", shortCode),
					slog.Any("err", err),
				)
			}
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep reconciles every known short code. A failure on one code is logged
// and does not abort the rest of the sweep.
func (s *Syncer) sweep(ctx context.Context) {
	codes, err := s.repo.ListShortCodes(ctx)
	if err != nil {
		s.logger.Error("click sync sweep failed to list short codes", slog.Any("err", err))
		return
	}

	for _, shortCode := range codes {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.SyncCode(ctx, shortCode); err != nil {
			s.logger.Error("click sync failed",
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}
	}
}

// SyncCode consumes the pending delta for shortCode and merges it into the
// durable total. A zero delta is a no-op. If the merge fails after the
// counter was consumed, the delta is returned to the cache so the next
// sweep retries it instead of losing the clicks.
func (s *Syncer) SyncCode(ctx context.Context, shortCode string) error {
	const op = "clicksync.Syncer.SyncCode"

	delta, err := s.cache.ReadAndResetClicks(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to read pending clicks: %w", op, err)
	}

	if delta == 0 {
		return nil
	}

	if err := s.repo.IncrementClicks(ctx, shortCode, delta); err != nil {
		if addErr := s.cache.AddClicks(ctx, shortCode, delta); addErr != nil {
			s.logger.Error("failed to return unsynced clicks to cache",
				slog.String("short_code", shortCode),
				slog.Int64("delta", delta),
				slog.Any("err", addErr),
			)
		}

		return fmt.Errorf("%s: failed to merge clicks: %w", op, err)
	}

	s.logger.Debug("synced clicks",
		slog.String("short_code", shortCode),
		slog.Int64("delta", delta),
	)

	return nil
}
