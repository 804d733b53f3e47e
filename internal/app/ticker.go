package app

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/atetria/internal/domain"
)

// runTicker soft-drops the game every interval until it ends, is deleted,
// or its board fails a consistency check.
func (s *Service) runTicker(ss *session, every time.Duration) {
	defer s.tickers.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	log := s.log.With(zap.String("game_id", ss.id))
	for {
		select {
		case <-ss.stop:
			log.Debug("ticker stopped")
			return
		case <-t.C:
			err := guard(func() error {
				_, err := s.Tick(ss.id)
				return err
			})
			var insane *domain.SanityError
			switch {
			case err == nil:
				continue
			case errors.As(err, &insane):
				log.Error("board sanity check failed, ticker stopped", zap.Error(err))
			default:
				log.Debug("ticker stopped", zap.Error(err))
			}
			return
		}
	}
}

// guard runs fn, turning a *domain.SanityError panic into an error. Other
// panics propagate.
func guard(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		insane, ok := r.(*domain.SanityError)
		if !ok {
			panic(r)
		}
		err = insane
	}()
	return fn()
}
