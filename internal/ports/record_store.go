package ports

import (
	"context"
	"errors"

	"adtraffic/internal/domain/trafficking"
)

var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrStageConflict means the ticket left the expected stage before the
	// update landed.
	ErrStageConflict = errors.New("ticket stage changed")
)

// QACheckRecord is one audit-log row written per check per payload.
type QACheckRecord struct {
	TicketID       string
	IdempotencyKey string
	CheckName      string
	PayloadID      string
	Platform       string
	Geo            string
	Verdict        string
	Detail         string
}

// RecordStore is the external system of record for tickets and campaigns.
// The pipeline only reads tickets and campaigns and updates ticket stages; it
// never deletes.
type RecordStore interface {
	// ListPendingTickets returns tickets in the Trafficking stage ordered by id.
	ListPendingTickets(ctx context.Context) ([]trafficking.Ticket, error)
	// GetCampaign resolves title, market and channel references.
	GetCampaign(ctx context.Context, campaignID string) (trafficking.Campaign, error)
	GetLookups(ctx context.Context) (trafficking.Lookups, error)
	// UpdateTicketStage moves a ticket from one stage to another only while it
	// still sits in from. A non-empty reason replaces the notes; moving to
	// Ready to Launch without one clears them.
	UpdateTicketStage(ctx context.Context, ticketID string, from, to trafficking.Stage, reason string) error
	// CreateQACheckRecord appends to the QA log. It reports false when a
	// record with the same idempotency key already exists.
	CreateQACheckRecord(ctx context.Context, record QACheckRecord) (bool, error)
	// ListOpenTickets returns every ticket not yet Completed.
	ListOpenTickets(ctx context.Context) ([]trafficking.Ticket, error)
}

type TicketFilter struct {
	Stage    trafficking.Stage
	Assignee string
}

// StoredQACheck is a QA log row as read back for operators.
type StoredQACheck struct {
	QACheckRecord
	CreatedAt string
}

// RecordBrowser is the read side operators use to inspect the local store.
type RecordBrowser interface {
	ListTickets(ctx context.Context, filter TicketFilter) ([]trafficking.Ticket, error)
	ListQAChecks(ctx context.Context, ticketID string) ([]StoredQACheck, error)
}
