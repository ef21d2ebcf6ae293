package server

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// RunSweeper periodically refunds and deletes TTL-expired games until the
// context is cancelled. Lazy expiry on load handles users who come back;
// the sweep bounds the liability for users who never do.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) error {
	logger := s.logger.With().Str("component", "sweeper").Logger()
	logger.Info().Dur("interval", interval).Msg("starting expiry sweeper")

	ticker := s.clock.TickerFunc(ctx, interval, func() error {
		if err := s.sweepExpired(ctx); err != nil {
			logger.Error().Err(err).Msg("expiry sweep failed")
		}
		return nil
	}, "expiry-sweep")

	err := ticker.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// sweepExpired refunds all expired games. Each game's user lock is taken
// so the sweep cannot race a late request; locked games are skipped and
// picked up by the next pass.
func (s *Server) sweepExpired(ctx context.Context) error {
	expired, err := s.games.Expired(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, g := range expired {
		release, err := s.locks.Acquire(g.UserID)
		if err != nil {
			continue
		}
		// Re-check under the lock: a request may have renewed or
		// settled the game while we held the candidate list.
		current, err := s.games.Load(ctx, g.ID)
		if err == nil && s.isExpired(current) {
			errs = multierr.Append(errs, s.expireGame(ctx, current))
		}
		release()
	}
	return errs
}
