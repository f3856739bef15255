package trafficking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/errs"
)

const lastRunTTL = 7 * 24 * time.Hour

// rememberRun stores the batch summary for `status` and the HTTP API. Failure
// is logged and otherwise ignored.
func (s *Service) rememberRun(ctx context.Context, batch BatchResult) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(batch.Summary())
	if err != nil {
		logging.Warn(ctx, "encode run summary failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	if err := s.cache.Set(ctx, lastRunCacheKey, string(raw), lastRunTTL); err != nil {
		logging.Warn(ctx, "save run summary failed", slog.Any("err", errs.Loggable(err)))
	}
}

// LastRun returns the summary of the most recent batch, if one is cached.
func (s *Service) LastRun(ctx context.Context) (RunSummary, bool, error) {
	if s.cache == nil {
		return RunSummary{}, false, nil
	}
	raw, found, err := s.cache.Get(ctx, lastRunCacheKey)
	if err != nil {
		return RunSummary{}, false, errs.Wrap(err, "read run summary")
	}
	if !found {
		return RunSummary{}, false, nil
	}
	var sum RunSummary
	if err := json.Unmarshal([]byte(raw), &sum); err != nil {
		return RunSummary{}, false, errs.Wrap(err, "decode run summary")
	}
	return sum, true, nil
}
