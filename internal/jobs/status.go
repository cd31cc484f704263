package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/service"
)

// StatusJob keeps challenge statuses in step with the clock, so pending
// challenges go live and ended ones get their final results sent even when
// nobody is talking to the bot.
type StatusJob struct {
	lifecycle *service.LifecycleService
	interval  time.Duration
	done      chan struct{}
}

func NewStatusJob(lifecycle *service.LifecycleService, interval time.Duration) *StatusJob {
	return &StatusJob{
		lifecycle: lifecycle,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *StatusJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("status job started")
}

func (j *StatusJob) Stop() {
	close(j.done)
	log.Info().Msg("status job stopped")
}

func (j *StatusJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sync()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sync()
		}
	}
}

func (j *StatusJob) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.lifecycle.SyncStatuses(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("challenge status sync failed")
	}
}
