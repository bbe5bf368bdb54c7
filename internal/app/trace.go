package app

import (
	"time"

	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
)

// eventTrace logs every bus delivery at debug level and handler failures at
// warn level.
type eventTrace struct {
	logger log.Log
}

func newEventTrace(logger log.Log) *eventTrace {
	return &eventTrace{logger: logger.With(log.Component("events"))}
}

func (t *eventTrace) OnDelivered(e bus.Event, handlers int, err error, took time.Duration) {
	if err != nil {
		t.logger.Warn("event handler failed",
			log.String("type", e.Type()),
			log.String("source", e.Source()),
			log.Error(err),
		)
		return
	}
	t.logger.Debug("event delivered",
		log.String("type", e.Type()),
		log.String("source", e.Source()),
		log.Int("handlers", handlers),
		log.Duration("took", took),
	)
}
