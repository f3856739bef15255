package ports

import "context"

// AlertKind names the event an alert is raised for.
type AlertKind string

const (
	AlertQAFailure     AlertKind = "qa_failure"
	AlertSLABreach     AlertKind = "sla_breach"
	AlertTicketBlocked AlertKind = "ticket_blocked"
)

// AlertMessage is a formatted notification ready for delivery.
type AlertMessage struct {
	Title string
	Text  string
}

// AlertSink delivers one formatted alert. Implementations do not retry.
type AlertSink interface {
	Notify(ctx context.Context, kind AlertKind, msg AlertMessage) error
}
