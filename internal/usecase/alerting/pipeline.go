// Package alerting formats failure and SLA notifications and hands them to
// the configured sink. Delivery is best-effort: outcomes are returned and
// logged, never retried.
package alerting

import (
	"context"
	"errors"
	"log/slog"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/domain/qa"
	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
)

var errNoSink = errors.New("no alert sink configured")

// Delivery is the outcome of one notify call.
type Delivery struct {
	Kind      ports.AlertKind
	Title     string
	Delivered bool
	Err       error
}

type Pipeline struct {
	sink ports.AlertSink
}

func NewPipeline(sink ports.AlertSink) *Pipeline {
	return &Pipeline{sink: sink}
}

// Notify sends msg. A nil sink or a sink error yields Delivered=false with
// the error attached.
func (p *Pipeline) Notify(ctx context.Context, kind ports.AlertKind, msg ports.AlertMessage) Delivery {
	out := Delivery{Kind: kind, Title: msg.Title}
	logCtx := logging.WithAttrs(ctx, slog.String("alert_kind", string(kind)))

	if p == nil || p.sink == nil {
		out.Err = errs.Wrap(errNoSink, "notify")
		logging.Warn(logCtx, "alert dropped", slog.String("title", msg.Title), slog.Any("err", errs.Loggable(out.Err)))
		return out
	}

	if err := p.sink.Notify(ctx, kind, msg); err != nil {
		out.Err = err
		logging.Warn(logCtx, "alert delivery failed", slog.String("title", msg.Title), slog.Any("err", errs.Loggable(err)))
		return out
	}
	out.Delivered = true
	logging.Info(logCtx, "alert delivered", slog.String("title", msg.Title))
	return out
}

func (p *Pipeline) NotifyQAFailure(ctx context.Context, ticket trafficking.Ticket, campaign trafficking.Campaign, results []qa.Result) Delivery {
	return p.Notify(ctx, ports.AlertQAFailure, FormatQAFailure(ticket, campaign, results))
}

// NotifySLABreach sends one grouped alert. With no breaches nothing is sent
// and the zero Delivery is returned.
func (p *Pipeline) NotifySLABreach(ctx context.Context, breaches []Breach) Delivery {
	if len(breaches) == 0 {
		return Delivery{Kind: ports.AlertSLABreach}
	}
	return p.Notify(ctx, ports.AlertSLABreach, FormatSLABreaches(RankBreaches(breaches)))
}

func (p *Pipeline) NotifyBlocked(ctx context.Context, ticket trafficking.Ticket, reason string) Delivery {
	return p.Notify(ctx, ports.AlertTicketBlocked, FormatBlocked(ticket, reason))
}
