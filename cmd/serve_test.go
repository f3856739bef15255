package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/ports"
	"adtraffic/internal/usecase/alerting"
	"adtraffic/internal/usecase/trafficking"
)

type stubPipeline struct {
	input    trafficking.RunInput
	batch    trafficking.BatchResult
	runErr   error
	sla      trafficking.SLAResult
	last     trafficking.RunSummary
	lastSeen bool
}

func (s *stubPipeline) RunBatch(_ context.Context, input trafficking.RunInput) (trafficking.BatchResult, error) {
	s.input = input
	return s.batch, s.runErr
}

func (s *stubPipeline) CheckSLA(context.Context) (trafficking.SLAResult, error) {
	return s.sla, nil
}

func (s *stubPipeline) LastRun(context.Context) (trafficking.RunSummary, bool, error) {
	return s.last, s.lastSeen, nil
}

type countingPipeline struct {
	stubPipeline
	calls atomic.Int32
	err   error
}

func (c *countingPipeline) RunBatch(context.Context, trafficking.RunInput) (trafficking.BatchResult, error) {
	c.calls.Add(1)
	return trafficking.BatchResult{}, c.err
}

type stubBrowser struct {
	filter  ports.TicketFilter
	tickets []domaintrafficking.Ticket
	checks  map[string][]ports.StoredQACheck
}

func (s *stubBrowser) ListTickets(_ context.Context, filter ports.TicketFilter) ([]domaintrafficking.Ticket, error) {
	s.filter = filter
	return s.tickets, nil
}

func (s *stubBrowser) ListQAChecks(_ context.Context, ticketID string) ([]ports.StoredQACheck, error) {
	return s.checks[ticketID], nil
}

func serveRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestAPIHealthz(t *testing.T) {
	t.Parallel()

	h := newAPIHandler(context.Background(), &stubPipeline{}, &stubBrowser{}, trafficking.RunInput{})
	resp := serveRequest(t, h, http.MethodGet, "/healthz", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok"`) {
		t.Fatalf("GET /healthz = %d %s", resp.Code, resp.Body.String())
	}
}

func TestAPIRunUsesDefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	svc := &stubPipeline{batch: trafficking.BatchResult{
		RunID: "run-1",
		Tickets: []trafficking.TicketResult{
			{TicketID: "T2", Outcome: trafficking.OutcomeBlocked, ToStage: domaintrafficking.StageBlocked, Reason: "radio"},
			{TicketID: "T1", Outcome: trafficking.OutcomeReadyToLaunch, ToStage: domaintrafficking.StageReadyToLaunch},
		},
	}}
	h := newAPIHandler(context.Background(), svc, &stubBrowser{}, trafficking.RunInput{Parallel: 4, HealthCheck: true})

	resp := serveRequest(t, h, http.MethodPost, "/v1/runs", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /v1/runs = %d %s", resp.Code, resp.Body.String())
	}
	if diff := cmp.Diff(trafficking.RunInput{Parallel: 4, HealthCheck: true}, svc.input); diff != "" {
		t.Fatalf("run input (-want +got):\n%s", diff)
	}

	var sum trafficking.RunSummary
	if err := json.Unmarshal(resp.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.RunID != "run-1" || len(sum.Tickets) != 2 || sum.Tickets[0].TicketID != "T1" {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Counts[trafficking.OutcomeBlocked] != 1 {
		t.Fatalf("counts = %+v", sum.Counts)
	}

	resp = serveRequest(t, h, http.MethodPost, "/v1/runs", `{"parallel":2,"health_check":false}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /v1/runs override = %d", resp.Code)
	}
	if diff := cmp.Diff(trafficking.RunInput{Parallel: 2}, svc.input); diff != "" {
		t.Fatalf("run input override (-want +got):\n%s", diff)
	}
}

func TestAPIRunRejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newAPIHandler(context.Background(), &stubPipeline{}, &stubBrowser{}, trafficking.RunInput{Parallel: 1})
	for _, body := range []string{`{`, `{"parallel":0}`} {
		if resp := serveRequest(t, h, http.MethodPost, "/v1/runs", body); resp.Code != http.StatusBadRequest {
			t.Fatalf("POST /v1/runs %s = %d", body, resp.Code)
		}
	}
}

func TestAPIRunFailure(t *testing.T) {
	t.Parallel()

	svc := &stubPipeline{runErr: errors.New("list pending tickets: unavailable")}
	h := newAPIHandler(context.Background(), svc, &stubBrowser{}, trafficking.RunInput{Parallel: 1})
	resp := serveRequest(t, h, http.MethodPost, "/v1/runs", "")
	if resp.Code != http.StatusInternalServerError || !strings.Contains(resp.Body.String(), "unavailable") {
		t.Fatalf("POST /v1/runs = %d %s", resp.Code, resp.Body.String())
	}
}

func TestAPIRunConflictWhileRunning(t *testing.T) {
	t.Parallel()

	svc := &stubPipeline{runErr: trafficking.ErrRunInProgress}
	h := newAPIHandler(context.Background(), svc, &stubBrowser{}, trafficking.RunInput{Parallel: 1})
	resp := serveRequest(t, h, http.MethodPost, "/v1/runs", "")
	if resp.Code != http.StatusConflict || !strings.Contains(resp.Body.String(), "in progress") {
		t.Fatalf("POST /v1/runs = %d %s", resp.Code, resp.Body.String())
	}
}

func TestRunScheduledSkipsWhileRunning(t *testing.T) {
	t.Parallel()

	svc := &countingPipeline{err: trafficking.ErrRunInProgress}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	runScheduled(ctx, svc, trafficking.RunInput{Parallel: 1}, 5*time.Millisecond)
	if svc.calls.Load() == 0 {
		t.Fatalf("runScheduled() never attempted a run")
	}
}

func TestAPILastRun(t *testing.T) {
	t.Parallel()

	svc := &stubPipeline{}
	h := newAPIHandler(context.Background(), svc, &stubBrowser{}, trafficking.RunInput{})
	if resp := serveRequest(t, h, http.MethodGet, "/v1/runs/last", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("GET /v1/runs/last before run = %d", resp.Code)
	}

	svc.last = trafficking.RunSummary{RunID: "run-9"}
	svc.lastSeen = true
	resp := serveRequest(t, h, http.MethodGet, "/v1/runs/last", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "run-9") {
		t.Fatalf("GET /v1/runs/last = %d %s", resp.Code, resp.Body.String())
	}
}

func TestAPISLACheck(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubPipeline{sla: trafficking.SLAResult{
		Checked: 3,
		Breaches: []alerting.Breach{{
			Ticket:   domaintrafficking.Ticket{ID: "T9", Assignee: "lee", Stage: domaintrafficking.StageQA},
			Deadline: deadline,
			Overdue:  5 * time.Hour,
		}},
		Alert: alerting.Delivery{Kind: ports.AlertSLABreach, Err: errors.New("webhook down")},
	}}
	h := newAPIHandler(context.Background(), svc, &stubBrowser{}, trafficking.RunInput{})

	resp := serveRequest(t, h, http.MethodPost, "/v1/sla-checks", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /v1/sla-checks = %d", resp.Code)
	}
	var out slaResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := slaResponse{
		Checked:    3,
		Breaches:   []slaBreachResponse{{TicketID: "T9", Assignee: "lee", Stage: "QA", Deadline: deadline, Overdue: "5h0m0s"}},
		AlertError: "webhook down",
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("sla response (-want +got):\n%s", diff)
	}
}

func TestAPITicketsAndQAChecks(t *testing.T) {
	t.Parallel()

	browser := &stubBrowser{
		tickets: []domaintrafficking.Ticket{{ID: "T3", CampaignID: "C3", RequestType: domaintrafficking.RequestNewCampaign, Stage: domaintrafficking.StageQA}},
		checks: map[string][]ports.StoredQACheck{
			"T3": {{QACheckRecord: ports.QACheckRecord{TicketID: "T3", CheckName: "Landing Page", Platform: "DV360", Geo: "US", Verdict: "Fail", Detail: "Non-HTTPS URL provided"}}},
		},
	}
	h := newAPIHandler(context.Background(), &stubPipeline{}, browser, trafficking.RunInput{})

	resp := serveRequest(t, h, http.MethodGet, "/v1/tickets?stage=qa&assignee=dana", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"T3"`) {
		t.Fatalf("GET /v1/tickets = %d %s", resp.Code, resp.Body.String())
	}
	if browser.filter.Stage != domaintrafficking.StageQA || browser.filter.Assignee != "dana" {
		t.Fatalf("filter = %+v", browser.filter)
	}

	if resp := serveRequest(t, h, http.MethodGet, "/v1/tickets?stage=nope", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("GET /v1/tickets bad stage = %d", resp.Code)
	}

	resp = serveRequest(t, h, http.MethodGet, "/v1/tickets/T3/qa-checks", "")
	var checks []qaCheckResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &checks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(checks) != 1 || checks[0].Result != "Fail" || checks[0].CheckName != "Landing Page" {
		t.Fatalf("qa checks = %+v", checks)
	}
}
