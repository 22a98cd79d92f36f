package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/robfig/cron/v3"
)

const DefaultStateSweepSchedule = "@every 1m"

type ExpiredStatePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// StateSweeper periodically deletes abandoned authorization states. Expiry
// is still enforced at consumption; the sweep only reclaims storage.
type StateSweeper struct {
	cron   *cron.Cron
	purger ExpiredStatePurger
	logger Logger
	now    func() time.Time
}

func NewStateSweeper(purger ExpiredStatePurger, schedule string, logger Logger) (*StateSweeper, error) {
	if purger == nil {
		return nil, fmt.Errorf("core: state purger is required")
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = DefaultStateSweepSchedule
	}
	sweeper := &StateSweeper{
		cron:   cron.New(),
		purger: purger,
		logger: glog.Ensure(logger),
		now:    time.Now,
	}
	if _, err := sweeper.cron.AddFunc(schedule, func() {
		_, _ = sweeper.RunOnce(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("core: invalid state sweep schedule %q: %w", schedule, err)
	}
	return sweeper, nil
}

func (s *StateSweeper) RunOnce(ctx context.Context) (int, error) {
	purged, err := s.purger.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("state sweep failed", "error", err)
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("state sweep purged expired states", "purged", purged)
	}
	return purged, nil
}

func (s *StateSweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once a running
// sweep has finished.
func (s *StateSweeper) Stop() context.Context {
	return s.cron.Stop()
}
