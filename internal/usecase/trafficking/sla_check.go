package trafficking

import (
	"context"
	"errors"
	"log/slog"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/errs"
	"adtraffic/internal/usecase/alerting"
)

// CheckSLA scans open tickets for missed deadlines and sends one grouped
// alert. It never changes a ticket.
func (s *Service) CheckSLA(ctx context.Context) (SLAResult, error) {
	if ctx == nil {
		return SLAResult{}, errors.New("context is required")
	}
	if s.store == nil {
		return SLAResult{}, errStoreRequired
	}
	ctx = logging.WithComponent(ctx, "usecase.sla")

	open, err := s.store.ListOpenTickets(ctx)
	if err != nil {
		return SLAResult{}, errs.Wrap(err, "list open tickets")
	}

	breaches := alerting.FindBreaches(open, s.now())
	out := SLAResult{Checked: len(open), Breaches: breaches}
	logging.Info(ctx, "sla health check", slog.Int("open", len(open)), slog.Int("breaches", len(breaches)))
	if len(breaches) == 0 {
		return out, nil
	}

	out.Alert = s.alerts.NotifySLABreach(context.WithoutCancel(ctx), breaches)
	return out, nil
}
