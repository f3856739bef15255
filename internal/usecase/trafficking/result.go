package trafficking

import (
	"sort"
	"time"

	"adtraffic/internal/domain/qa"
	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/usecase/alerting"
)

// Outcome is what happened to one ticket in a batch.
type Outcome string

const (
	OutcomeReadyToLaunch Outcome = "ready_to_launch"
	OutcomeQA            Outcome = "qa"
	OutcomeBlocked       Outcome = "blocked"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeSuperseded    Outcome = "superseded"
	OutcomeError         Outcome = "error"
	OutcomeCancelled     Outcome = "cancelled"
)

var outcomeOrder = []Outcome{
	OutcomeReadyToLaunch,
	OutcomeQA,
	OutcomeBlocked,
	OutcomeSkipped,
	OutcomeSuperseded,
	OutcomeError,
	OutcomeCancelled,
}

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	out := make([]Outcome, len(outcomeOrder))
	copy(out, outcomeOrder)
	return out
}

type TicketResult struct {
	TicketID   string
	CampaignID string
	Outcome    Outcome
	FromStage  domaintrafficking.Stage
	// ToStage is empty when the ticket was not advanced.
	ToStage  domaintrafficking.Stage
	Payloads []domaintrafficking.Payload
	// Planned counts the payloads the ticket called for, built or not.
	Planned int
	Results []qa.Result
	Verdict qa.Verdict
	// RecordsWritten counts QA log rows created; duplicates are not counted.
	RecordsWritten int
	Reason         string
	Alert          *alerting.Delivery
	Err            error
}

type SLAResult struct {
	Checked  int
	Breaches []alerting.Breach
	Alert    alerting.Delivery
}

type BatchResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Tickets    []TicketResult
	SLA        *SLAResult
	// SLAErr is set when the health check could not list open tickets.
	SLAErr error
}

func (b BatchResult) Count(o Outcome) int {
	n := 0
	for _, t := range b.Tickets {
		if t.Outcome == o {
			n++
		}
	}
	return n
}

// AlertFailures returns every alert that was attempted and not delivered.
func (b BatchResult) AlertFailures() []alerting.Delivery {
	var out []alerting.Delivery
	for _, t := range b.Tickets {
		if t.Alert != nil && !t.Alert.Delivered {
			out = append(out, *t.Alert)
		}
	}
	if b.SLA != nil && len(b.SLA.Breaches) > 0 && !b.SLA.Alert.Delivered {
		out = append(out, b.SLA.Alert)
	}
	return out
}

// RunSummary is the cached, serialisable view of the last batch.
type RunSummary struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Counts      map[Outcome]int `json:"counts"`
	Tickets     []TicketSummary `json:"tickets"`
	SLABreaches int             `json:"sla_breaches"`
}

type TicketSummary struct {
	TicketID string  `json:"ticket_id"`
	Outcome  Outcome `json:"outcome"`
	Stage    string  `json:"stage,omitempty"`
	Verdict  string  `json:"verdict,omitempty"`
	Payloads int     `json:"payloads,omitempty"`
	Planned  int     `json:"planned,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func (b BatchResult) Summary() RunSummary {
	sum := RunSummary{
		RunID:      b.RunID,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
		Counts:     map[Outcome]int{},
	}
	for _, t := range b.Tickets {
		sum.Counts[t.Outcome]++
		ts := TicketSummary{
			TicketID: t.TicketID,
			Outcome:  t.Outcome,
			Stage:    string(t.ToStage),
			Verdict:  string(t.Verdict),
			Payloads: len(t.Payloads),
			Planned:  t.Planned,
			Reason:   t.Reason,
		}
		if t.Err != nil {
			ts.Error = t.Err.Error()
		}
		sum.Tickets = append(sum.Tickets, ts)
	}
	sort.Slice(sum.Tickets, func(i, j int) bool { return sum.Tickets[i].TicketID < sum.Tickets[j].TicketID })
	if b.SLA != nil {
		sum.SLABreaches = len(b.SLA.Breaches)
	}
	return sum
}
