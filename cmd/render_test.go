package cmd

import (
	"errors"
	"strings"
	"testing"

	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/format"
	"adtraffic/internal/usecase/alerting"
	"adtraffic/internal/usecase/trafficking"
)

func TestRenderBatch(t *testing.T) {
	batch := trafficking.BatchResult{
		RunID: "run-1",
		Tickets: []trafficking.TicketResult{
			{TicketID: "T1", CampaignID: "C1", Outcome: trafficking.OutcomeReadyToLaunch, FromStage: domaintrafficking.StageTrafficking, ToStage: domaintrafficking.StageReadyToLaunch,
				Payloads: []domaintrafficking.Payload{{ID: "p1"}, {ID: "p2"}}, Planned: 3},
			{TicketID: "T2", CampaignID: "C2", Outcome: trafficking.OutcomeBlocked, ToStage: domaintrafficking.StageBlocked, Reason: "Channel \"Radio\" has no platform mapping",
				Alert: &alerting.Delivery{Err: errors.New("down")}},
			{TicketID: "T5", CampaignID: "C1", Outcome: trafficking.OutcomeError, Err: errors.New("record store unavailable")},
		},
		SLA: &trafficking.SLAResult{Checked: 4},
	}

	var b strings.Builder
	if err := renderBatch(&b, batch, format.ASCII); err != nil {
		t.Fatalf("renderBatch() error = %v", err)
	}
	out := b.String()
	for _, want := range []string{"READY TO LAUNCH", "BLOCKED", "ERROR", "Trafficking -> Ready to Launch", "[2/3 payloads]", "Radio", "alert not delivered", "record store unavailable", "TOTAL", "SLA: 4 open ticket(s), 0 breach(es)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("renderBatch() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SKIPPED") {
		t.Fatalf("renderBatch() lists empty outcomes:\n%s", out)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := parseMode("md"); err != nil || m != format.Markdown {
		t.Fatalf("parseMode(md) = %v, %v", m, err)
	}
	if _, err := parseMode("html"); err == nil {
		t.Fatalf("parseMode(html) error = nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  short ", 10); got != "short" {
		t.Fatalf("truncate() = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate() = %q", got)
	}
}
