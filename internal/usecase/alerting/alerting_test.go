package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"adtraffic/internal/domain/qa"
	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/ports"
)

type stubSink struct {
	err  error
	sent []ports.AlertMessage
}

func (s *stubSink) Notify(_ context.Context, _ ports.AlertKind, msg ports.AlertMessage) error {
	s.sent = append(s.sent, msg)
	return s.err
}

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func ticketCreated(id, assignee string, slaHours int, overdue time.Duration) trafficking.Ticket {
	created := now.Add(-overdue - time.Duration(slaHours)*time.Hour)
	return trafficking.Ticket{
		ID:        id,
		Assignee:  assignee,
		Stage:     trafficking.StageTrafficking,
		SLAHours:  slaHours,
		CreatedAt: created,
	}
}

func TestFindBreaches(t *testing.T) {
	due := now.Add(-30 * time.Minute)
	tickets := []trafficking.Ticket{
		ticketCreated("T1", "dana", 24, 2*time.Hour),
		ticketCreated("T2", "dana", 24, -time.Hour),
		{ID: "T3", Stage: trafficking.StageQA, DueDate: &due},
		{ID: "T4", Stage: trafficking.StageQA},
		func() trafficking.Ticket {
			t := ticketCreated("T5", "dana", 24, 9*time.Hour)
			t.Stage = trafficking.StageCompleted
			return t
		}(),
	}

	breaches := FindBreaches(tickets, now)
	got := make([]string, 0, len(breaches))
	for _, b := range breaches {
		got = append(got, b.Ticket.ID)
	}
	if diff := cmp.Diff([]string{"T1", "T3"}, got); diff != "" {
		t.Fatalf("FindBreaches() (-want +got):\n%s", diff)
	}
	if breaches[0].Overdue != 2*time.Hour || breaches[1].Overdue != 30*time.Minute {
		t.Fatalf("overdue = %v, %v", breaches[0].Overdue, breaches[1].Overdue)
	}
}

func TestDeadlinePicksEarlier(t *testing.T) {
	ticket := ticketCreated("T1", "dana", 48, 0)
	due := ticket.CreatedAt.Add(time.Hour)
	ticket.DueDate = &due

	got, ok := Deadline(ticket)
	if !ok || !got.Equal(due) {
		t.Fatalf("Deadline() = %v, %v; want %v", got, ok, due)
	}
}

func TestRankBreachesWorstFirst(t *testing.T) {
	breaches := FindBreaches([]trafficking.Ticket{
		ticketCreated("T-2H", "dana", 24, 2*time.Hour),
		ticketCreated("T-5H", "dana", 24, 5*time.Hour),
		ticketCreated("T-1H", "lee", 8, time.Hour),
		ticketCreated("T-9H", "", 8, 9*time.Hour),
	}, now)

	groups := RankBreaches(breaches)
	var order []string
	for _, g := range groups {
		order = append(order, g.Assignee)
	}
	if diff := cmp.Diff([]string{unassigned, "dana", "lee"}, order); diff != "" {
		t.Fatalf("assignee order (-want +got):\n%s", diff)
	}
	dana := groups[1]
	if dana.Breaches[0].Ticket.ID != "T-5H" || dana.Breaches[1].Ticket.ID != "T-2H" || dana.Worst != 5*time.Hour {
		t.Fatalf("dana group = %+v", dana)
	}
}

func TestSLABreachMessageRanksFiveHoursFirst(t *testing.T) {
	sink := &stubSink{}
	p := NewPipeline(sink)

	breaches := FindBreaches([]trafficking.Ticket{
		ticketCreated("T-2H", "dana", 24, 2*time.Hour),
		ticketCreated("T-5H", "dana", 24, 5*time.Hour),
	}, now)

	d := p.NotifySLABreach(context.Background(), breaches)
	if !d.Delivered || d.Err != nil || d.Kind != ports.AlertSLABreach {
		t.Fatalf("NotifySLABreach() = %+v", d)
	}
	text := sink.sent[0].Text
	i5, i2 := strings.Index(text, "T-5H"), strings.Index(text, "T-2H")
	if i5 < 0 || i2 < 0 || i5 > i2 {
		t.Fatalf("5h breach must come first:\n%s", text)
	}
	if !strings.Contains(text, "5h0m") || !strings.Contains(text, "**dana**") {
		t.Fatalf("message text:\n%s", text)
	}
}

func TestNotifySLABreachNothingToSend(t *testing.T) {
	sink := &stubSink{}
	d := NewPipeline(sink).NotifySLABreach(context.Background(), nil)
	if d.Delivered || d.Err != nil || len(sink.sent) != 0 {
		t.Fatalf("NotifySLABreach(nil) = %+v, sent = %d", d, len(sink.sent))
	}
}

func TestNotifyReportsSinkFailure(t *testing.T) {
	boom := errors.New("webhook unreachable")
	p := NewPipeline(&stubSink{err: boom})

	d := p.NotifyBlocked(context.Background(), trafficking.Ticket{ID: "T2", CampaignID: "C2"}, "Channel \"Radio\" has no platform mapping.")
	if d.Delivered || !errors.Is(d.Err, boom) || d.Kind != ports.AlertTicketBlocked {
		t.Fatalf("NotifyBlocked() = %+v", d)
	}

	d = NewPipeline(nil).Notify(context.Background(), ports.AlertQAFailure, ports.AlertMessage{Title: "x"})
	if d.Delivered || d.Err == nil {
		t.Fatalf("Notify(nil sink) = %+v", d)
	}
}

func TestFormatQAFailureListsOnlyBlocking(t *testing.T) {
	results := []qa.Result{
		{Check: qa.CheckGeoTargeting, Platform: trafficking.PlatformDV360, Geo: "CA", Verdict: qa.VerdictFail, Detail: "Geo CA is outside approved market US (US)."},
		{Check: qa.CheckTaxonomy, Platform: trafficking.PlatformDV360, Geo: "CA", Verdict: qa.VerdictPass, Detail: "Taxonomy ok."},
		{Check: qa.CheckContentExclusions, Platform: trafficking.PlatformDV360, Geo: "CA", Verdict: qa.VerdictNeedsReview, Detail: "Sponsorship requires S&P review."},
	}
	msg := FormatQAFailure(
		trafficking.Ticket{ID: "T1", Assignee: "dana"},
		trafficking.Campaign{ID: "C1", Name: "Loki S2 Launch"},
		results,
	)

	if msg.Title != "QA failed: T1" {
		t.Fatalf("title = %q", msg.Title)
	}
	if !strings.Contains(msg.Text, "2 blocking QA result(s), verdict Fail") {
		t.Fatalf("text:\n%s", msg.Text)
	}
	if strings.Contains(msg.Text, "Taxonomy ok.") {
		t.Fatalf("passing result leaked into alert:\n%s", msg.Text)
	}
}

func TestFormatOverdue(t *testing.T) {
	tests := map[time.Duration]string{
		5 * time.Hour:                "5h0m",
		90 * time.Minute:             "1h30m",
		51*time.Hour + 10*time.Minute: "2d3h",
	}
	for in, want := range tests {
		if got := formatOverdue(in); got != want {
			t.Fatalf("formatOverdue(%v) = %q, want %q", in, got, want)
		}
	}
}
