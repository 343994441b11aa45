// Package deduplication drops Telegram updates that were already handled.
// Telegram redelivers an update when the webhook answer is slow or lost.
package deduplication

import (
	"context"
	"strconv"
	"time"

	"ccbot/internal/constants"
	"ccbot/internal/logger"
	"ccbot/pkg/metrics"
	"ccbot/pkg/tracing"
)

type Service struct {
	repo   Repository
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// NewService claims update ids under the namespace prefix for ttl. A zero ttl uses
// constants.DefaultUpdateDedupTTL.
func NewService(repo Repository, prefix string, ttl time.Duration, log logger.Logger) *Service {
	if ttl <= 0 {
		ttl = constants.DefaultUpdateDedupTTL
	}
	if log == nil {
		log = logger.NopLogger()
	}
	if prefix != "" {
		prefix += ":"
	}
	return &Service{
		repo:   repo,
		prefix: prefix + constants.CacheKeyPrefixUpdate,
		ttl:    ttl,
		logger: log,
	}
}

// FirstSeen reports whether updateID has not been handled yet. A store error
// lets the update through.
func (s *Service) FirstSeen(ctx context.Context, updateID int64) bool {
	ctx, span := tracing.GetTracer("ccbot/deduplication").Start(ctx, "deduplication.first_seen")
	defer span.End()

	start := time.Now()
	fresh, err := s.repo.SetNX(ctx, s.prefix+strconv.FormatInt(updateID, 10), s.ttl)
	metrics.ObserveDedupDuration(time.Since(start))

	if err != nil {
		metrics.IncDedupCheck("error")
		s.logger.WarnwCtx(ctx, "Update deduplication unavailable, handling update",
			"update_id", updateID,
			"error", err,
		)
		return true
	}

	if !fresh {
		metrics.IncDedupCheck("duplicate")
		s.logger.InfowCtx(ctx, "Dropping redelivered update", "update_id", updateID)
		return false
	}
	metrics.IncDedupCheck("unique")
	return true
}
