package alertsink

import (
	"context"
	"errors"
	"log/slog"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/ports"
)

// RouterSink sends QA failures to the QA channel when one is configured and
// everything else to the default channel.
type RouterSink struct {
	QA      ports.AlertSink
	Default ports.AlertSink
}

func (r RouterSink) Notify(ctx context.Context, kind ports.AlertKind, msg ports.AlertMessage) error {
	if kind == ports.AlertQAFailure && r.QA != nil {
		return r.QA.Notify(ctx, kind, msg)
	}
	if r.Default == nil {
		return errors.New("no alert sink configured")
	}
	return r.Default.Notify(ctx, kind, msg)
}

// LogSink writes alerts to the process log. It is the fallback when no
// webhook is configured, so alerts are never silently lost.
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, kind ports.AlertKind, msg ports.AlertMessage) error {
	logging.Warn(logging.WithComponent(ctx, "alertsink.log"), "alert",
		slog.String("kind", string(kind)),
		slog.String("title", msg.Title),
		slog.String("text", msg.Text),
	)
	return nil
}

// MultiSink delivers to every sink and joins all delivery errors.
type MultiSink []ports.AlertSink

func (m MultiSink) Notify(ctx context.Context, kind ports.AlertKind, msg ports.AlertMessage) error {
	var errList []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, kind, msg); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
