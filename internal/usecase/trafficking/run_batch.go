package trafficking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/domain/qa"
	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
)

type RunInput struct {
	// Parallel bounds concurrently processed tickets; values below 1 mean 1.
	Parallel    int
	HealthCheck bool
}

func newRunID() string {
	return uuid.NewString()
}

// RunBatch processes every pending ticket once. Store failures while listing
// tickets or lookups abort the run; anything that goes wrong for one ticket is
// recorded in its TicketResult and the batch continues. Cancellation is
// honoured between tickets; a ticket whose write-back started is always
// finished. Only one batch runs per Service at a time; a second caller gets
// ErrRunInProgress.
func (s *Service) RunBatch(ctx context.Context, input RunInput) (BatchResult, error) {
	if ctx == nil {
		return BatchResult{}, errors.New("context is required")
	}
	if err := s.validate(); err != nil {
		return BatchResult{}, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return BatchResult{}, ErrRunInProgress
	}
	defer s.running.Store(false)
	if err := ctx.Err(); err != nil {
		return BatchResult{}, errs.Wrap(err, "check context")
	}

	batch := BatchResult{RunID: s.newID(), StartedAt: s.now().UTC()}
	logCtx := logging.WithAttrs(
		logging.WithComponent(ctx, "usecase.trafficking"),
		slog.String("run_id", batch.RunID),
	)

	tickets, err := s.store.ListPendingTickets(logCtx)
	if err != nil {
		return BatchResult{}, errs.Wrap(err, "list pending tickets")
	}
	lookups, err := s.store.GetLookups(logCtx)
	if err != nil {
		return BatchResult{}, errs.Wrap(err, "load lookups")
	}
	tickets = dedupeTickets(tickets)
	logging.Info(logCtx, "batch started", slog.Int("pending", len(tickets)))

	parallel := input.Parallel
	if parallel < 1 {
		parallel = 1
	}

	results := make([]TicketResult, len(tickets))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, ticket := range tickets {
		if ctx.Err() != nil {
			results[i] = cancelledResult(ticket)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = cancelledResult(ticket)
				return nil
			}
			results[i] = s.processOne(logCtx, ticket, lookups)
			return nil
		})
	}
	_ = g.Wait()
	batch.Tickets = results

	if input.HealthCheck && ctx.Err() == nil {
		sla, err := s.CheckSLA(logCtx)
		if err != nil {
			batch.SLAErr = err
			logging.Warn(logCtx, "sla health check failed", slog.Any("err", errs.Loggable(err)))
		} else {
			batch.SLA = &sla
		}
	}

	batch.FinishedAt = s.now().UTC()
	s.rememberRun(context.WithoutCancel(logCtx), batch)

	logging.Info(logCtx, "batch finished",
		slog.Int("ready", batch.Count(OutcomeReadyToLaunch)),
		slog.Int("qa", batch.Count(OutcomeQA)),
		slog.Int("blocked", batch.Count(OutcomeBlocked)),
		slog.Int("skipped", batch.Count(OutcomeSkipped)),
		slog.Int("superseded", batch.Count(OutcomeSuperseded)),
		slog.Int("errors", batch.Count(OutcomeError)),
		slog.Int("cancelled", batch.Count(OutcomeCancelled)),
	)

	if err := ctx.Err(); err != nil {
		return batch, errs.Wrap(err, "batch interrupted")
	}
	return batch, nil
}

func dedupeTickets(tickets []domaintrafficking.Ticket) []domaintrafficking.Ticket {
	seen := make(map[string]struct{}, len(tickets))
	out := make([]domaintrafficking.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cancelledResult(t domaintrafficking.Ticket) TicketResult {
	return TicketResult{TicketID: t.ID, CampaignID: t.CampaignID, FromStage: t.Stage, Outcome: OutcomeCancelled}
}

func (s *Service) processOne(ctx context.Context, ticket domaintrafficking.Ticket, lookups domaintrafficking.Lookups) TicketResult {
	ctx = logging.WithTicket(ctx, ticket.ID, ticket.CampaignID)
	res := TicketResult{TicketID: ticket.ID, CampaignID: ticket.CampaignID, FromStage: ticket.Stage}

	if ticket.RequestType == domaintrafficking.RequestOther {
		res.Outcome = OutcomeSkipped
		res.Reason = "No automated action for this request type."
		logging.Info(ctx, "ticket skipped", slog.String("request_type", ticket.RequestType.String()))
		return res
	}

	campaign, err := s.store.GetCampaign(ctx, ticket.CampaignID)
	if err != nil {
		if errors.Is(err, ports.ErrCampaignNotFound) {
			return s.block(ctx, ticket, res, fmt.Sprintf("Campaign %q not found in the record store.", ticket.CampaignID))
		}
		return failed(ctx, res, errs.Wrap(err, "get campaign"))
	}

	construction, err := s.engine.ProcessTicket(ticket, campaign, lookups)
	if err != nil {
		return s.block(ctx, ticket, res, errs.Reason(err))
	}
	res.Payloads = construction.Payloads
	res.Planned = construction.Planned()

	results := s.checker.RunAllChecks(construction.Payloads, campaign)
	results = append(results, qa.ConstructionFailures(construction.Failures)...)
	res.Results = results
	res.Verdict = qa.Aggregate(results)

	next := domaintrafficking.StageReadyToLaunch
	if res.Verdict.Blocking() {
		next = domaintrafficking.StageQA
		res.Reason = qaReason(results)
	}

	written, err := s.writeBack(ctx, ticket, next, res.Reason, qaRecords(ticket.ID, results))
	res.RecordsWritten = written
	if err != nil {
		if errors.Is(err, ports.ErrStageConflict) {
			return superseded(ctx, res, err)
		}
		return failed(ctx, res, err)
	}
	res.ToStage = next

	if next == domaintrafficking.StageReadyToLaunch {
		res.Outcome = OutcomeReadyToLaunch
		logging.Info(ctx, "ticket ready to launch",
			slog.Int("payloads", len(res.Payloads)),
			slog.Int("planned", res.Planned),
		)
		return res
	}

	res.Outcome = OutcomeQA
	logging.Info(ctx, "ticket sent to qa",
		slog.String("verdict", string(res.Verdict)),
		slog.Int("blocking", len(qa.Failures(results))),
	)
	delivery := s.alerts.NotifyQAFailure(context.WithoutCancel(ctx), ticket, campaign, results)
	res.Alert = &delivery
	return res
}

// block moves ticket to Blocked with reason and raises a best-effort alert.
func (s *Service) block(ctx context.Context, ticket domaintrafficking.Ticket, res TicketResult, reason string) TicketResult {
	res.Reason = reason
	if _, err := s.writeBack(ctx, ticket, domaintrafficking.StageBlocked, reason, nil); err != nil {
		if errors.Is(err, ports.ErrStageConflict) {
			return superseded(ctx, res, err)
		}
		return failed(ctx, res, err)
	}
	res.Outcome = OutcomeBlocked
	res.ToStage = domaintrafficking.StageBlocked
	logging.Warn(ctx, "ticket blocked", slog.String("reason", reason))

	delivery := s.alerts.NotifyBlocked(context.WithoutCancel(ctx), ticket, reason)
	res.Alert = &delivery
	return res
}

// writeBack persists QA records and the stage update as one unit. It runs on
// a context detached from cancellation so a started ticket is never left
// half-written.
func (s *Service) writeBack(ctx context.Context, ticket domaintrafficking.Ticket, next domaintrafficking.Stage, reason string, records []ports.QACheckRecord) (int, error) {
	detached := context.WithoutCancel(ctx)
	written := 0
	err := s.uow.WithTx(detached, func(txCtx context.Context) error {
		written = 0
		for _, rec := range records {
			created, err := s.store.CreateQACheckRecord(txCtx, rec)
			if err != nil {
				return errs.Wrapf(err, "write qa record %s", rec.CheckName)
			}
			if created {
				written++
			}
		}
		if err := s.store.UpdateTicketStage(txCtx, ticket.ID, ticket.Stage, next, reason); err != nil {
			return errs.Wrap(err, "update ticket stage")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// superseded reports a ticket that another writer moved while it was being
// processed. Its QA records were rolled back with the stage write and no alert
// is raised.
func superseded(ctx context.Context, res TicketResult, err error) TicketResult {
	res.Outcome = OutcomeSuperseded
	res.RecordsWritten = 0
	res.Reason = "Ticket changed stage while it was being processed."
	logging.Warn(ctx, "ticket superseded", slog.Any("err", errs.Loggable(err)))
	return res
}

func failed(ctx context.Context, res TicketResult, err error) TicketResult {
	res.Outcome = OutcomeError
	res.Err = err
	logging.Error(ctx, "ticket failed", slog.Any("err", errs.Loggable(err)))
	return res
}

func qaRecords(ticketID string, results []qa.Result) []ports.QACheckRecord {
	out := make([]ports.QACheckRecord, 0, len(results))
	for _, r := range results {
		out = append(out, ports.QACheckRecord{
			TicketID:       ticketID,
			IdempotencyKey: qaRecordKey(ticketID, r),
			CheckName:      string(r.Check),
			PayloadID:      r.PayloadID,
			Platform:       string(r.Platform),
			Geo:            r.Geo,
			Verdict:        string(r.Verdict),
			Detail:         r.Detail,
		})
	}
	return out
}

// qaReason is the note persisted on a ticket sent back to QA.
func qaReason(results []qa.Result) string {
	failures := qa.Failures(results)
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s [%s/%s]: %s", f.Check, f.Platform, f.Geo, f.Detail))
	}
	return fmt.Sprintf("%d blocking QA result(s). %s", len(failures), strings.Join(parts, " | "))
}
