package identity

import (
	"context"
	"github.com/rs/zerolog/log"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/task"
	"time"
)

// NewCleanupTask creates a repeating task that terminates expired sessions of the given storage
func NewCleanupTask(storage session.Storage, interval time.Duration) *task.RepeatingTask {
	return task.NewRepeating(func() {
		n, err := storage.TerminateExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not terminate expired sessions")
		} else if n > 0 {
			log.Debug().Int("amount", n).Msg("terminated expired sessions")
		}
	}, interval)
}
