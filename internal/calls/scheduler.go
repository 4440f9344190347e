package calls

import (
	"context"
	"errors"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const processSpec = "@every 1m"

// StartScheduler runs ProcessDue every minute until the returned cron is
// stopped.
func StartScheduler(callService Service, log zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(processSpec, func() {
		ctx := logger.WithContext(context.Background(), log)
		processed, err := callService.ProcessDue(ctx)
		if err != nil {
			if !errors.Is(err, ErrTelephonyUnavailable) {
				log.Error().Err(err).Msg("Processing due calls failed")
			}
			return
		}
		if processed > 0 {
			log.Info().Int("processed", processed).Msg("Due calls processed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
