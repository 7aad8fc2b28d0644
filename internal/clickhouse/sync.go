package clickhouse

import (
	"context"
	"errors"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/metrics"
	"github.com/johnboyce/golf-outing-manager/internal/models"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
)

// HandicapSource reports handicaps keyed by player id.
type HandicapSource interface {
	GetAllHandicaps(ctx context.Context) (map[string]float64, error)
}

// HandicapStore is the write side of the roster store.
type HandicapStore interface {
	SetPlayerHandicap(ctx context.Context, id string, handicap float64) (*models.Player, error)
}

// Syncer copies handicaps from a source into the store. A draft session that
// already loaded its roster keeps the handicaps it loaded.
type Syncer struct {
	source  HandicapSource
	store   HandicapStore
	events  pubsub.Publisher
	metrics *metrics.Recorder
}

// NewSyncer wires a handicap sync job. events and rec may be nil.
func NewSyncer(source HandicapSource, store HandicapStore, events pubsub.Publisher, rec *metrics.Recorder) *Syncer {
	return &Syncer{source: source, store: store, events: events, metrics: rec}
}

// SyncOnce runs a single sync cycle and returns how many players changed.
// Handicaps for players missing from the store are skipped.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	start := time.Now()
	handicaps, err := s.source.GetAllHandicaps(ctx)
	if err != nil {
		s.metrics.RecordHandicapSync(0, time.Since(start), err)
		return 0, err
	}

	updated := 0
	for id, h := range handicaps {
		if _, err := s.store.SetPlayerHandicap(ctx, id, h); err != nil {
			if errors.Is(err, dal.ErrNotFound) || errors.Is(err, dal.ErrInvalidRecord) {
				logger.Debug("Skipping handicap update", logger.FieldPlayerID, id, "error", err)
				continue
			}
			s.metrics.RecordHandicapSync(updated, time.Since(start), err)
			return updated, err
		}
		updated++
	}

	s.metrics.RecordHandicapSync(updated, time.Since(start), nil)
	if s.events != nil {
		s.events.Publish(pubsub.NewEvent(pubsub.EventHandicapsSynced, map[string]any{"updated": updated}))
	}
	return updated, nil
}

// Run syncs immediately and then on every tick until ctx is done.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := s.SyncOnce(ctx); err != nil {
			logger.Error("Failed to sync handicaps from ClickHouse", "error", err)
		} else {
			logger.Debug("Synced handicaps from ClickHouse", logger.FieldCount, n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
