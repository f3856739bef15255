package alertsink

import (
	"context"
	"log/slog"
	"strings"

	"adtraffic/internal/bootstrap/config"
	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/ports"
)

// FromConfig assembles the alert sink: webhook routing (QA to Teams, the rest
// to Slack) or the log fallback, plus a NATS publisher when a url is set.
// The returned close func releases the NATS connection.
func FromConfig(ctx context.Context, cfg config.AlertsConfig) (ports.AlertSink, func(), error) {
	logCtx := logging.WithComponent(ctx, "alertsink")

	var slack, teams ports.AlertSink
	if url := strings.TrimSpace(cfg.SlackWebhookURL); url != "" {
		sink, err := NewWebhookSink("slack", url, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		slack = sink
	}
	if url := strings.TrimSpace(cfg.TeamsWebhookURL); url != "" {
		sink, err := NewWebhookSink("teams", url, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		teams = sink
	}

	var primary ports.AlertSink
	switch {
	case slack == nil && teams == nil:
		logging.Warn(logCtx, "no webhook configured, alerts go to the log")
		primary = LogSink{}
	case slack == nil:
		primary = teams
	default:
		primary = RouterSink{QA: teams, Default: slack}
	}

	if strings.TrimSpace(cfg.NATSURL) == "" {
		return primary, func() {}, nil
	}

	natsSink, err := DialNATS(cfg.NATSURL, cfg.NATSSubject, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	logging.Info(logCtx, "nats alert publisher connected", slog.String("subject", natsSink.subject))
	return MultiSink{primary, natsSink}, natsSink.Close, nil
}
