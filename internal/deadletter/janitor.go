package deadletter

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor prunes old dead-letter entries on a cron schedule. Disabled unless
// both a schedule and a retention are configured.
type Janitor struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
}

// NewJanitor creates a janitor pruning entries older than retention per the
// cron schedule (standard five-field syntax, descriptors like "@hourly"
// accepted).
func NewJanitor(store *Store, schedule string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		store:     store,
		retention: retention,
		cron:      cron.New(),
	}

	_, err := j.cron.AddFunc(schedule, j.sweep)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	removed := j.store.PruneOlderThan(j.retention)
	if removed > 0 {
		log.Info().
			Int("removed", removed).
			Dur("retention", j.retention).
			Msg("Pruned expired dead-letter entries")
	}
}
