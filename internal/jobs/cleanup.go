package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/repository"
)

// CleanupJob sweeps conversation sessions whose idle time has passed the
// TTL. Expired sessions are also caught lazily when the user next writes;
// this keeps abandoned ones from piling up.
type CleanupJob struct {
	sessionRepo repository.SessionRepository
	ttl         time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewCleanupJob(sessionRepo repository.SessionRepository, ttl, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sessionRepo: sessionRepo,
		ttl:         ttl,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.ttl)
	count, err := j.sessionRepo.DeleteInactiveSince(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up sessions")
	}
}
